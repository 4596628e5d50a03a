package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spigell/recruit-bot/internal/recruit"
)

// MaxHistory bounds the turns kept for AI context.
const MaxHistory = 10

// Turn roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is one candidate's progress through the questionnaire.
// Step 0 means not started, 1..N is the question cursor and N+1 is done.
type Session struct {
	Step            int                    `json:"step"`
	Profile         recruit.Profile        `json:"profile"`
	RawAnswers      map[recruit.Key]string `json:"raw_answers,omitempty"`
	History         []Turn                 `json:"history,omitempty"`
	RetryCount      int                    `json:"retry_count"`
	LastAnswer      string                 `json:"last_answer,omitempty"`
	SameAnswerCount int                    `json:"same_answer_count"`
	LastActivity    time.Time              `json:"last_activity"`
	Completed       bool                   `json:"completed"`
	CompletionTime  time.Time              `json:"completion_time,omitempty"`
	FinalReply      string                 `json:"final_reply,omitempty"`
	Eligible        *bool                  `json:"eligible,omitempty"`
}

// New returns a fresh session at step 0.
func New(now time.Time) *Session {
	return &Session{
		RawAnswers:   make(map[recruit.Key]string),
		LastActivity: now,
	}
}

// Touch records activity.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// AddTurn appends a turn and keeps only the last MaxHistory of them.
func (s *Session) AddTurn(role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.History = append(s.History, Turn{Role: role, Text: text})
	if len(s.History) > MaxHistory {
		s.History = append([]Turn(nil), s.History[len(s.History)-MaxHistory:]...)
	}
}

// RecordAnswer stores the raw text given for key.
func (s *Session) RecordAnswer(key recruit.Key, text string) {
	if s.RawAnswers == nil {
		s.RawAnswers = make(map[recruit.Key]string)
	}
	s.RawAnswers[key] = text
}

// Expired reports whether an active session has been idle longer than timeout.
// Completed sessions never expire; they wait for the cooldown instead.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	if s.Completed || timeout <= 0 {
		return false
	}
	return now.Sub(s.LastActivity) > timeout
}

// CooldownLeft returns how long a completed session must still wait before
// it can restart. It is zero for active sessions and never negative.
func (s *Session) CooldownLeft(now time.Time, cooldown time.Duration) time.Duration {
	if !s.Completed {
		return 0
	}
	left := s.CompletionTime.Add(cooldown).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Reset starts the questionnaire over at step. Nothing else survives.
func (s *Session) Reset(step int, now time.Time) {
	*s = Session{
		Step:         step,
		RawAnswers:   make(map[recruit.Key]string),
		LastActivity: now,
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		cp := *s
		return &cp
	}
	var cp Session
	if err := json.Unmarshal(data, &cp); err != nil {
		cp := *s
		return &cp
	}
	return &cp
}
