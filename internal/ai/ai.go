// Package ai defines the contract with the generative AI collaborator and the
// adapter that guards its answers before they reach a candidate profile.
package ai

import (
	"context"
	"errors"

	"github.com/spigell/recruit-bot/internal/recruit"
)

// ErrNotConfigured is returned when no AI collaborator is available.
var ErrNotConfigured = errors.New("ai collaborator is not configured")

// Roles used in conversation history.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Turn is one message of the recent conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ExtractRequest is one answer the deterministic extractor could not read.
type ExtractRequest struct {
	Key      recruit.Key
	Question string
	Text     string
	Profile  recruit.Profile
	History  []Turn
	// Fields the collaborator may fill for this question.
	Fields []string
}

// Extraction is the structured reply of the collaborator, before any local
// validation.
type Extraction struct {
	Valid       bool           `json:"is_valid"`
	Data        map[string]any `json:"extracted_data"`
	BotResponse string         `json:"bot_response"`
}

// Extractor reads an answer for a given question.
type Extractor interface {
	ExtractAndValidate(ctx context.Context, req ExtractRequest) (*Extraction, error)
}

// Responder writes free-form replies and adjudicates fuzzy location matches.
type Responder interface {
	Freeform(ctx context.Context, text, contextSummary string) (string, error)
	SameRegion(ctx context.Context, city, branch string) (bool, error)
}
