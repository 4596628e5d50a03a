package recruit

import "github.com/spigell/recruit-bot/internal/textnorm"

var (
	defaultYes = []string{"si", "sí", "sip", "claro", "yes", "correcto", "obvio", "acepto", "simon", "dale", "por supuesto"}
	defaultNo  = []string{"no", "nop", "negativo", "nunca", "jamas", "nel", "naranjas"}
)

// Answers is the affirmative and negative vocabulary for yes/no questions.
type Answers struct {
	Yes []string
	No  []string
}

// DefaultAnswers returns the built-in vocabulary extended with extra tokens.
func DefaultAnswers(extraYes, extraNo []string) Answers {
	return Answers{
		Yes: append(append([]string{}, defaultYes...), extraYes...),
		No:  append(append([]string{}, defaultNo...), extraNo...),
	}
}

// Match classifies text. The second value is false when the text is neither
// clearly affirmative nor negative. Exact matches win over word matches and
// affirmative words are checked first.
func (a Answers) Match(text string) (bool, bool) {
	tn := textnorm.Normalize(text)
	if tn == "" {
		return false, false
	}

	for _, y := range a.Yes {
		if tn == textnorm.Normalize(y) {
			return true, true
		}
	}
	for _, n := range a.No {
		if tn == textnorm.Normalize(n) {
			return false, true
		}
	}

	if textnorm.HasAnyWord(tn, a.Yes...) {
		return true, true
	}
	if textnorm.HasAnyWord(tn, a.No...) {
		return false, true
	}
	return false, false
}
