package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/recruit-bot/internal/dialogue"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/utils"
	"go.uber.org/zap"
)

const (
	msgNoReply    = "⚠️ No pude procesar tu mensaje.\nEscribe *ayuda* o *empezar* para iniciar tu postulación."
	msgSendFailed = "⚠️ Ocurrió un error al enviar el mensaje. Intenta nuevamente."

	maxLoggedText = 200
)

var handledEvents = []string{"message", "text"}

// envelope is a WAHA webhook call.
type envelope struct {
	Event   string  `mapstructure:"event"`
	Payload payload `mapstructure:"payload"`
}

type payload struct {
	Data    map[string]any `mapstructure:"_data"`
	From    string         `mapstructure:"from"`
	ChatID  string         `mapstructure:"chatId"`
	Sender  string         `mapstructure:"sender"`
	Author  string         `mapstructure:"author"`
	Body    string         `mapstructure:"body"`
	Text    string         `mapstructure:"text"`
	Message any            `mapstructure:"message"`
	Caption string         `mapstructure:"caption"`
	FromMe  bool           `mapstructure:"fromMe"`
}

// inbound is a message worth answering.
type inbound struct {
	chatID string
	text   string
}

func decodeEnvelope(raw map[string]any) (envelope, error) {
	var env envelope
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return env, err
	}
	if err := dec.Decode(raw); err != nil {
		return envelope{}, err
	}
	env.Event = strings.ToLower(strings.TrimSpace(env.Event))
	return env, nil
}

// classify returns the message to answer, or the reason to ignore the call.
func classify(env envelope) (inbound, string) {
	chatID := env.Payload.chatID()
	switch {
	case chatID == "":
		return inbound{}, "no chat_id"
	case strings.Contains(chatID, "@g.us") || strings.Contains(chatID, "@broadcast"):
		return inbound{}, "group/broadcast"
	case env.Payload.FromMe:
		return inbound{}, "message from bot"
	case env.Event != "" && !hasAnyPrefix(env.Event, handledEvents):
		return inbound{}, "event " + env.Event + " not handled"
	}
	return inbound{chatID: chatID, text: env.Payload.text()}, ""
}

// chatID prefers the real user id in _data over the top level fields, which
// may carry a linked device or group id.
func (p payload) chatID() string {
	id, _ := p.Data["id"].(map[string]any)

	if user, ok := id["user"].(string); ok && user != "" && isDigits(user) {
		return user + "@c.us"
	}
	if remote, ok := id["remote"].(string); ok && strings.Contains(remote, "@") && !strings.Contains(remote, "g.us") {
		return remote
	}
	return firstNonEmpty(p.From, p.ChatID, p.Sender, p.Author)
}

func (p payload) text() string {
	msg, _ := p.Message.(string)
	if t := firstNonEmpty(p.Body, p.Text, msg, p.Caption); t != "" {
		return t
	}
	if nested, ok := p.Message.(map[string]any); ok {
		body, _ := nested["body"].(string)
		text, _ := nested["text"].(string)
		return firstNonEmpty(body, text)
	}
	return ""
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "detail": "invalid json"})
		return
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		s.logger.Warn("malformed webhook payload", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "detail": "malformed payload"})
		return
	}

	msg, reason := classify(env)
	if reason != "" {
		s.logger.Debug("webhook ignored", zap.String("reason", reason), zap.String("event", env.Event))
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored", "reason": reason})
		return
	}

	s.logger.Info("message received",
		zap.String(logger.FieldConversation, msg.chatID),
		zap.String("event", env.Event),
		zap.String("text", logger.TruncateForLog(msg.text, maxLoggedText)),
	)

	// A turn runs to completion even if WAHA hangs up.
	s.reply(context.WithoutCancel(r.Context()), msg)

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "processed": true})
}

// reply runs one turn: typing indicator, delay, processing and delivery.
func (s *Server) reply(ctx context.Context, msg inbound) {
	s.gateway.SendSeen(ctx, msg.chatID)
	s.gateway.StartTyping(ctx, msg.chatID)
	defer s.gateway.StopTyping(ctx, msg.chatID)

	_ = utils.WaitFor(ctx, s.cfg.TypingDelay)

	text := s.process(ctx, msg)
	if strings.TrimSpace(text) == "" {
		text = msgNoReply
	}

	log := s.logger.With(zap.String(logger.FieldConversation, msg.chatID))
	log.Debug("sending reply", zap.String("text", logger.TruncateForLog(text, maxLoggedText)))

	if err := s.gateway.SendText(ctx, msg.chatID, text); err != nil {
		log.Error("sending reply failed", zap.Error(err))
		if err := s.gateway.SendText(ctx, msg.chatID, msgSendFailed); err != nil {
			log.Error("sending failure notice failed", zap.Error(err))
		}
	}
}

func (s *Server) process(ctx context.Context, msg inbound) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("processing message panicked",
				zap.String(logger.FieldConversation, msg.chatID),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			reply = dialogue.MsgApology
		}
	}()

	return s.processor.Process(ctx, msg.chatID, msg.text)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
