package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "   ", expect: ""},
		{name: "accents and case", input: "  Sí, ACEPTO ", expect: "si, acepto"},
		{name: "enie", input: "Breña", expect: "brena"},
		{name: "mixed", input: "Minería Huánuco", expect: "mineria huanuco"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Normalize(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestHasWord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		word   string
		expect bool
	}{
		{name: "whole word", text: "Claro que sí", word: "si", expect: true},
		{name: "part of word", text: "sip", word: "si", expect: false},
		{name: "phrase", text: "por supuesto!", word: "por supuesto", expect: true},
		{name: "empty word", text: "hola", word: "", expect: false},
		{name: "accented word", text: "jamas", word: "jamás", expect: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HasWord(tt.text, tt.word); got != tt.expect {
				t.Fatalf("HasWord(%q, %q) = %v, want %v", tt.text, tt.word, got, tt.expect)
			}
		})
	}
}

func TestDigits(t *testing.T) {
	t.Parallel()

	if got := Digits("DNI: 12.345-678"); got != "12345678" {
		t.Fatalf("unexpected digits: %q", got)
	}

	// Re-running on the output keeps it unchanged.
	if got := Digits(Digits("987 654 321")); got != "987654321" {
		t.Fatalf("digits are not idempotent: %q", got)
	}
}

func TestSmallInt(t *testing.T) {
	t.Parallel()

	if n, ok := SmallInt("tengo 25 años"); !ok || n != 25 {
		t.Fatalf("expected 25, got %d (%v)", n, ok)
	}

	if _, ok := SmallInt("tengo 150"); ok {
		t.Fatalf("three digit numbers must not match")
	}

	if _, ok := SmallInt("veinte"); ok {
		t.Fatalf("words must not match")
	}
}

func TestContainsAny(t *testing.T) {
	t.Parallel()

	if !ContainsAny("Soy TÉCNICO titulado", "tecnico") {
		t.Fatalf("expected match ignoring accents")
	}

	if ContainsAny("", "x") {
		t.Fatalf("empty text must not match")
	}
}
