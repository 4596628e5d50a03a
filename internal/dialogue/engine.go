// Package dialogue drives a candidate through the questionnaire one message
// at a time.
package dialogue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spigell/recruit-bot/internal/ai"
	"github.com/spigell/recruit-bot/internal/events"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/metrics"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/scheduler"
	"github.com/spigell/recruit-bot/internal/session"
	"github.com/spigell/recruit-bot/internal/storage"
	"github.com/spigell/recruit-bot/internal/textnorm"
	"go.uber.org/zap"
)

const (
	DefaultCompany      = "Hermes Transportes Blindados"
	DefaultAddress      = "Av. Prol. Huaylas 1720, Chorrillos"
	defaultStoreTimeout = 10 * time.Second
)

// AI is the part of the AI adapter the engine needs. Both calls degrade on
// their own when no collaborator is configured.
type AI interface {
	Enabled() bool
	ExtractAndValidate(ctx context.Context, req ai.ExtractRequest, fallback string) recruit.Result
	Freeform(ctx context.Context, text, contextSummary string) (string, error)
}

// Slotter proposes interview slots.
type Slotter interface {
	NextValidSlot(ctx context.Context) scheduler.Slot
}

// Saver persists finished applications.
type Saver interface {
	SaveApplication(ctx context.Context, app storage.Application) error
}

// Deps are the collaborators of the engine. Store, Flow, Extractors,
// Aptitude, Scheduler and Repository are required.
type Deps struct {
	Store      *session.Store
	Flow       *recruit.Flow
	Extractors *recruit.Extractors
	Aptitude   *recruit.Aptitude
	Scheduler  Slotter
	Repository Saver
	AI         AI
	Events     events.Publisher
	Logger     *zap.Logger
	Clock      func() time.Time
}

type Config struct {
	Company      string
	Address      string
	StoreTimeout time.Duration
}

type Engine struct {
	store      *session.Store
	flow       *recruit.Flow
	extractors *recruit.Extractors
	aptitude   *recruit.Aptitude
	scheduler  Slotter
	repo       Saver
	ai         AI
	events     events.Publisher
	cfg        Config
	now        func() time.Time
	logger     *zap.Logger
}

func New(deps Deps, cfg Config) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("session store is required")
	case deps.Flow == nil:
		return nil, errors.New("flow is required")
	case deps.Extractors == nil:
		return nil, errors.New("extractors are required")
	case deps.Aptitude == nil:
		return nil, errors.New("aptitude engine is required")
	case deps.Scheduler == nil:
		return nil, errors.New("scheduler is required")
	case deps.Repository == nil:
		return nil, errors.New("repository is required")
	}

	if deps.AI == nil {
		deps.AI = ai.NewAdapter(nil, nil, 0, deps.Logger)
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if strings.TrimSpace(cfg.Company) == "" {
		cfg.Company = DefaultCompany
	}
	if strings.TrimSpace(cfg.Address) == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	return &Engine{
		store:      deps.Store,
		flow:       deps.Flow,
		extractors: deps.Extractors,
		aptitude:   deps.Aptitude,
		scheduler:  deps.Scheduler,
		repo:       deps.Repository,
		ai:         deps.AI,
		events:     deps.Events,
		cfg:        cfg,
		now:        deps.Clock,
		logger:     deps.Logger,
	}, nil
}

// turn is the state of one Process call.
type turn struct {
	id   string
	text string
	norm string
	sess *session.Session
}

// Process handles one inbound message of conversation id and returns the
// reply. It never fails: collaborator errors degrade to local answers.
func (e *Engine) Process(ctx context.Context, id, text string) string {
	t := &turn{id: id, text: strings.TrimSpace(text)}
	t.norm = textnorm.Normalize(t.text)

	if t.text == "" {
		metrics.Message(metrics.OutcomeIdle)
		return msgEmpty
	}
	if isHelp(t.norm) {
		metrics.Message(metrics.OutcomeCommand)
		return msgHelp
	}

	sess, err := e.store.Acquire(ctx, id)
	if err != nil {
		e.logger.Error("acquiring session", zap.String(logger.FieldConversation, id), zap.Error(err))
		metrics.Message(metrics.OutcomeError)
		return MsgApology
	}
	t.sess = sess
	// Released even when handle panics, so the conversation stays usable.
	defer func() { e.store.Release(ctx, id, t.sess) }()

	reply, outcome := e.handle(ctx, t)
	metrics.Message(outcome)

	e.logger.Debug("message processed",
		append(logger.ConversationFields(id, t.sess.Step), zap.String("outcome", outcome))...,
	)
	return reply
}

func (e *Engine) handle(ctx context.Context, t *turn) (string, string) {
	now := e.now()

	if t.sess == nil || t.sess.Expired(now, e.store.Timeout()) {
		t.sess = session.New(now)
		if isStart(t.norm) || isReset(t.norm) {
			return e.start(ctx, t), metrics.OutcomeCommand
		}
		if isStatus(t.norm) {
			return e.say(t, msgNoApplication), metrics.OutcomeCommand
		}
		return e.say(t, greeting(e.cfg.Company)), metrics.OutcomeIdle
	}

	t.sess.Touch(now)
	t.sess.AddTurn(session.RoleUser, t.text)

	if t.sess.Completed {
		return e.handleCompleted(ctx, t, now)
	}

	if isStatus(t.norm) {
		if t.sess.Step == 0 {
			return e.say(t, msgNoApplication), metrics.OutcomeCommand
		}
		return e.say(t, progress(t.sess.Step, e.flow.Len())), metrics.OutcomeCommand
	}
	if isReset(t.norm) {
		return e.start(ctx, t), metrics.OutcomeCommand
	}

	if t.sess.Step == 0 {
		if isStart(t.norm) {
			return e.start(ctx, t), metrics.OutcomeCommand
		}
		return e.say(t, e.freeform(ctx, t.text, inviteContext, msgInvite)), metrics.OutcomeIdle
	}

	return e.answer(ctx, t)
}

func (e *Engine) handleCompleted(ctx context.Context, t *turn, now time.Time) (string, string) {
	if isRestart(t.norm) {
		left := t.sess.CooldownLeft(now, e.store.Cooldown())
		if left == 0 {
			return e.start(ctx, t), metrics.OutcomeCommand
		}
		return e.say(t, cooldown(int(left.Hours()))), metrics.OutcomeCommand
	}

	if strings.Contains(t.norm, "estado") || isStatus(t.norm) {
		reply := t.sess.FinalReply
		if reply == "" {
			reply = msgRegistered
		}
		return e.say(t, reply), metrics.OutcomeCommand
	}

	return e.say(t, e.freeform(ctx, t.text, e.summary(t.sess), msgFollowUp)), metrics.OutcomeFollowUp
}

// start resets the session to the first question.
func (e *Engine) start(ctx context.Context, t *turn) string {
	t.sess.Reset(1, e.now())
	return e.ask(ctx, t)
}

// answer treats the message as the answer to the current question.
func (e *Engine) answer(ctx context.Context, t *turn) (string, string) {
	s := t.sess

	key, ok := e.flow.Key(s.Step)
	if !ok {
		// The cursor ran past the last question without finalizing.
		return e.finalize(ctx, t), metrics.OutcomeCompleted
	}

	s.RecordAnswer(key, t.text)
	if s.LastAnswer == t.norm {
		s.SameAnswerCount++
	} else {
		s.SameAnswerCount = 0
		s.LastAnswer = t.norm
	}

	res := e.extractors.Extract(key, t.text, s.Profile)
	if !res.Valid && e.ai.Enabled() {
		res = e.ai.ExtractAndValidate(ctx, ai.ExtractRequest{
			Key:      key,
			Question: recruit.Question(key),
			Text:     t.text,
			Profile:  s.Profile,
			History:  history(s.History),
		}, res.Clarification)
	}

	if !res.Valid {
		return e.reject(ctx, t, key, res.Clarification)
	}

	s.RetryCount = 0
	s.SameAnswerCount = 0
	s.LastAnswer = ""
	s.Profile.Merge(res.Update)

	return e.advance(ctx, t)
}

func (e *Engine) reject(ctx context.Context, t *turn, key recruit.Key, clarification string) (string, string) {
	s := t.sess

	if key == recruit.KeyAge && s.RetryCount >= 1 {
		if n, ok := textnorm.SmallInt(t.text); ok {
			s.Profile.Age = &n
		}
		e.logger.Info("age soft retry, moving on", logger.ConversationFields(t.id, s.Step)...)
		return e.forceAdvance(ctx, t)
	}

	s.RetryCount++
	if s.SameAnswerCount >= 2 {
		e.logger.Info("same answer repeated, moving on",
			append(logger.ConversationFields(t.id, s.Step), zap.String("key", string(key)))...,
		)
		return e.forceAdvance(ctx, t)
	}

	reply := msgNotUnderstood
	if clarification != "" {
		reply = e.freeform(ctx, t.text, clarifyContext(t.text, clarification, e.cfg.Company), clarification)
	}
	return e.say(t, reply), metrics.OutcomeRetry
}

func (e *Engine) forceAdvance(ctx context.Context, t *turn) (string, string) {
	t.sess.RetryCount = 0
	t.sess.SameAnswerCount = 0
	t.sess.LastAnswer = ""

	reply, outcome := e.advance(ctx, t)
	if outcome == metrics.OutcomeAnswered {
		outcome = metrics.OutcomeForced
	}
	return reply, outcome
}

// advance moves to the next applicable question or finalizes.
func (e *Engine) advance(ctx context.Context, t *turn) (string, string) {
	next := e.flow.NextStep(ctx, t.sess.Step, t.sess.Profile)
	if next > e.flow.Len() {
		return e.finalize(ctx, t), metrics.OutcomeCompleted
	}

	t.sess.Step = next
	return e.ask(ctx, t), metrics.OutcomeAnswered
}

// ask returns the question at the current step. Asking for the interview
// books a proposed slot in the profile first.
func (e *Engine) ask(ctx context.Context, t *turn) string {
	key, ok := e.flow.Key(t.sess.Step)
	if !ok {
		return e.finalize(ctx, t)
	}

	if key != recruit.KeyInterview {
		return e.say(t, recruit.Question(key))
	}

	slot := e.scheduler.NextValidSlot(ctx)
	t.sess.Profile.ProposedInterview = slot.ISO()
	if slot.Degraded {
		e.logger.Warn("no interview capacity found, proposing fallback slot",
			append(logger.ConversationFields(t.id, t.sess.Step), zap.String("slot", slot.ISO()))...,
		)
	}
	return e.say(t, recruit.InterviewInvite(slot.Weekday, slot.Short))
}

// freeform lets the AI phrase a reply, falling back to the given text.
func (e *Engine) freeform(ctx context.Context, text, contextSummary, fallback string) string {
	reply, err := e.ai.Freeform(ctx, text, contextSummary)
	if err != nil {
		if !errors.Is(err, ai.ErrNotConfigured) {
			e.logger.Warn("freeform reply failed", zap.Error(err))
		}
		return fallback
	}
	return reply
}

func (e *Engine) say(t *turn, reply string) string {
	t.sess.AddTurn(session.RoleBot, reply)
	return reply
}

func history(turns []session.Turn) []ai.Turn {
	out := make([]ai.Turn, 0, len(turns))
	for _, t := range turns {
		role := ai.RoleBot
		if t.Role == session.RoleUser {
			role = ai.RoleUser
		}
		out = append(out, ai.Turn{Role: role, Text: t.Text})
	}
	return out
}
