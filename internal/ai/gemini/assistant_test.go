package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/recruit-bot/internal/ai"
	"github.com/spigell/recruit-bot/internal/recruit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func TestAssistantExtract(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"is_valid\": true, \"extracted_data\": {\"genero\": \"F\"}, \"bot_response\": null}\n```"}
	assistant := NewAssistant(stub, "Hermes", zap.NewNop(), 0)

	ext, err := assistant.ExtractAndValidate(context.Background(), ai.ExtractRequest{
		Key:      recruit.KeyGender,
		Question: recruit.Question(recruit.KeyGender),
		Text:     `soy "dama"`,
		Fields:   recruit.AllowedFields(recruit.KeyGender),
		History: []ai.Turn{
			{Role: ai.RoleBot, Text: "1) nombres"},
			{Role: ai.RoleUser, Text: "Ana"},
			{Role: ai.RoleBot, Text: "2) apellidos"},
			{Role: ai.RoleUser, Text: "Quispe"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !ext.Valid {
		t.Fatalf("expected valid extraction")
	}

	if ext.Data["genero"] != "F" {
		t.Fatalf("unexpected data: %+v", ext.Data)
	}

	if ext.BotResponse != "" {
		t.Fatalf("expected null bot response to be empty, got %q", ext.BotResponse)
	}

	prompt := stub.lastPrompt
	for _, want := range []string{
		"PREGUNTA ACTUAL (genero)",
		`RESPUESTA USUARIO: "soy 'dama'"`,
		"CAMPOS PERMITIDOS EN extracted_data: genero",
		`ENUMS PERMITIDOS para genero`,
		"Usuario: Quispe",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}

	if strings.Contains(prompt, "1) nombres") {
		t.Fatalf("expected history to be limited to the last %d turns", historyTurns)
	}
}

func TestAssistantExtractMalformed(t *testing.T) {
	stub := &stubGenerator{response: "no tengo idea"}
	assistant := NewAssistant(stub, "", zap.NewNop(), 0)

	if _, err := assistant.ExtractAndValidate(context.Background(), ai.ExtractRequest{Key: recruit.KeyAge}); err == nil {
		t.Fatal("expected parse error")
	}

	stub.err = errors.New("quota")
	if _, err := assistant.ExtractAndValidate(context.Background(), ai.ExtractRequest{Key: recruit.KeyAge}); err == nil {
		t.Fatal("expected generator error")
	}
}

func TestAssistantFreeform(t *testing.T) {
	stub := &stubGenerator{response: `{"response": "¡Te esperamos el lunes!"}`}
	assistant := NewAssistant(stub, "Hermes", zap.NewNop(), 0)

	reply, err := assistant.Freeform(context.Background(), "¿a qué hora es?", "Estado del postulante: APTO (Pre-aprobado).")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply != "¡Te esperamos el lunes!" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if !strings.Contains(stub.lastPrompt, "asistente de RRHH amable de Hermes") {
		t.Fatalf("expected company in prompt: %s", stub.lastPrompt)
	}

	stub.response = `{"response": ""}`
	if _, err := assistant.Freeform(context.Background(), "hola", ""); err == nil {
		t.Fatal("expected error for empty reply")
	}
}

func TestAssistantSameRegion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		response string
		expect   bool
	}{
		{name: "bool", response: `{"same_region": true}`, expect: true},
		{name: "string", response: `{"same_region": "SI"}`, expect: true},
		{name: "false", response: `{"same_region": false}`, expect: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubGenerator{response: tc.response}
			same, err := NewAssistant(stub, "", zap.NewNop(), 0).SameRegion(context.Background(), "Sicuani", "Cusco")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if same != tc.expect {
				t.Fatalf("expected %v, got %v", tc.expect, same)
			}
			if !strings.Contains(stub.lastPrompt, `"Sicuani"`) {
				t.Fatalf("expected city in prompt")
			}
		})
	}
}

func TestAssistantLogsPreviews(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	stub := &stubGenerator{response: `{"same_region": true}`}
	assistant := NewAssistant(stub, "", zap.New(core), 10)

	if _, err := assistant.SameRegion(context.Background(), "Sicuani", "Cusco"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := observed.FilterMessage("gemini generate content request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["ai_provider"] != "gemini" || ctx["ai_model"] != "stub-model" {
		t.Fatalf("missing common fields: %+v", ctx)
	}
	if preview, _ := ctx["prompt_preview"].(string); len([]rune(preview)) != 13 {
		t.Fatalf("expected truncated preview, got %q", preview)
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"Claro: {\"a\":1} listo":         `{"a":1}`,
		"  {\"a\":{\"b\":2}}  ":          `{"a":{"b":2}}`,
		"```\n{\"response\":\"hola\"}```": `{"response":"hola"}`,
	}

	for input, expect := range tests {
		if got := extractJSON(input); got != expect {
			t.Fatalf("extractJSON(%q) = %q, want %q", input, got, expect)
		}
	}
}
