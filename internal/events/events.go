package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject carries ApplicationCompleted events.
const DefaultSubject = "recruit.application.completed"

// ApplicationCompleted is published once per finished questionnaire.
type ApplicationCompleted struct {
	ApplicationID      string    `json:"application_id"`
	Phone              string    `json:"phone_number"`
	PositionID         int       `json:"puesto_id,omitempty"`
	PositionName       string    `json:"puesto_name,omitempty"`
	Eligible           bool      `json:"es_apto"`
	Reasons            []string  `json:"motivos,omitempty"`
	InterviewDate      string    `json:"fecha_entrevista,omitempty"`
	InterviewConfirmed bool      `json:"confirmacion_asistencia"`
	CompletedAt        time.Time `json:"completed_at"`
}

type Publisher interface {
	PublishCompleted(ctx context.Context, ev ApplicationCompleted) error
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishCompleted(context.Context, ApplicationCompleted) error { return nil }
func (Nop) Close()                                                       {}

// NATS publishes events as JSON on a single subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATS(url, token, subject string, logger *zap.Logger) (*NATS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}

	opts := []nats.Option{
		nats.Name("recruit-bot"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATS{conn: nc, subject: subject, logger: logger}, nil
}

func (n *NATS) PublishCompleted(_ context.Context, ev ApplicationCompleted) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}

func (n *NATS) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}
