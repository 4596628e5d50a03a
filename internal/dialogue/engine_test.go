package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/recruit-bot/internal/ai"
	"github.com/spigell/recruit-bot/internal/events"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/scheduler"
	"github.com/spigell/recruit-bot/internal/session"
	"github.com/spigell/recruit-bot/internal/storage"
	"github.com/stretchr/testify/require"
)

const chatID = "51987654321@c.us"

var lima = time.FixedZone("PET", -5*3600)

type fakeSaver struct {
	mu   sync.Mutex
	apps []storage.Application
	err  error
}

func (f *fakeSaver) SaveApplication(_ context.Context, app storage.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps = append(f.apps, app)
	return f.err
}

func (f *fakeSaver) saved() []storage.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Application(nil), f.apps...)
}

type fakeSlotter struct {
	slot   scheduler.Slot
	calls  int
	panics bool
}

func (f *fakeSlotter) NextValidSlot(context.Context) scheduler.Slot {
	f.calls++
	if f.panics {
		panic("scheduler exploded")
	}
	return f.slot
}

type fakePublisher struct {
	events []events.ApplicationCompleted
	err    error
}

func (f *fakePublisher) PublishCompleted(_ context.Context, ev events.ApplicationCompleted) error {
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Close() {}

type fakeAI struct {
	enabled  bool
	result   recruit.Result
	reply    string
	err      error
	requests []ai.ExtractRequest
	contexts []string
}

func (f *fakeAI) Enabled() bool { return f.enabled }

func (f *fakeAI) ExtractAndValidate(_ context.Context, req ai.ExtractRequest, fallback string) recruit.Result {
	f.requests = append(f.requests, req)
	if !f.result.Valid && f.result.Clarification == "" {
		return recruit.Result{Clarification: fallback}
	}
	return f.result
}

func (f *fakeAI) Freeform(_ context.Context, _ string, contextSummary string) (string, error) {
	f.contexts = append(f.contexts, contextSummary)
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "", ai.ErrNotConfigured
	}
	return f.reply, nil
}

type harness struct {
	engine    *Engine
	store     *session.Store
	flow      *recruit.Flow
	saver     *fakeSaver
	slotter   *fakeSlotter
	publisher *fakePublisher

	mu  sync.Mutex
	now time.Time
}

func newHarness(t *testing.T, assistant AI) *harness {
	t.Helper()

	h := &harness{
		now:       time.Date(2026, 10, 19, 10, 0, 0, 0, lima),
		saver:     &fakeSaver{},
		publisher: &fakePublisher{},
		slotter: &fakeSlotter{slot: scheduler.Slot{
			Time:    time.Date(2026, 10, 20, 8, 30, 0, 0, lima),
			Weekday: "Martes",
			Short:   "20/10",
		}},
	}

	aptitude := recruit.NewAptitude(nil, nil)
	h.flow = recruit.NewFlow(aptitude)
	h.store = session.NewStore(nil, session.Config{Timeout: time.Hour, Cooldown: 24 * time.Hour}, session.WithClock(h.clock))

	engine, err := New(Deps{
		Store:      h.store,
		Flow:       h.flow,
		Extractors: recruit.NewExtractors(recruit.DefaultAnswers(nil, nil)),
		Aptitude:   aptitude,
		Scheduler:  h.slotter,
		Repository: h.saver,
		AI:         assistant,
		Events:     h.publisher,
		Clock:      h.clock,
	}, Config{})
	require.NoError(t, err)
	h.engine = engine

	return h
}

func (h *harness) clock() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	h.now = h.now.Add(d)
	h.mu.Unlock()
}

func (h *harness) send(text string) string {
	return h.engine.Process(context.Background(), chatID, text)
}

func (h *harness) seed(t *testing.T, sess *session.Session) {
	t.Helper()
	_, err := h.store.Acquire(context.Background(), chatID)
	require.NoError(t, err)
	h.store.Release(context.Background(), chatID, sess)
}

func (h *harness) session(t *testing.T) *session.Session {
	t.Helper()
	sess, err := h.store.Acquire(context.Background(), chatID)
	require.NoError(t, err)
	cp := sess.Clone()
	h.store.Release(context.Background(), chatID, sess)
	return cp
}

func (h *harness) stepOf(t *testing.T, key recruit.Key) int {
	t.Helper()
	for step := 1; step <= h.flow.Len(); step++ {
		if k, _ := h.flow.Key(step); k == key {
			return step
		}
	}
	t.Fatalf("unknown key %s", key)
	return 0
}

// at returns an active session waiting on key.
func (h *harness) at(t *testing.T, key recruit.Key, p recruit.Profile) *session.Session {
	sess := session.New(h.clock())
	sess.Step = h.stepOf(t, key)
	sess.Profile = p
	return sess
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func eligibleDriver() recruit.Profile {
	return recruit.Profile{
		Consent:        boolPtr(true),
		FirstNames:     "Ana",
		Age:            intPtr(25),
		DocumentType:   recruit.DocumentDNI,
		HasNationalID:  boolPtr(true),
		DocumentNumber: "12345678",
		Secondary:      boolPtr(true),
		Origin:         recruit.RegionLima,
		License:        boolPtr(true),
		PositionID:     recruit.PositionDriver,
		Destination:    recruit.RegionLima,
		Available:      boolPtr(true),
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := New(Deps{}, Config{})
	require.Error(t, err)
}

func TestGlobalCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	require.Equal(t, msgEmpty, h.send("   "))
	require.Equal(t, msgHelp, h.send("Ayuda"))

	reply := h.send("hola")
	require.Contains(t, reply, "Hermes Transportes Blindados")
	require.Contains(t, reply, "empezar")
	require.Zero(t, h.session(t).Step)

	require.Equal(t, msgInvite, h.send("qué tal"))

	reply = h.send("Quiero postular")
	require.Contains(t, reply, "CONSENTIMIENTO")
	require.Equal(t, 1, h.session(t).Step)

	require.Equal(t, progress(1, h.flow.Len()), h.send("estado"))
}

func TestStartIntentOnNewSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	require.Contains(t, h.send("empezar"), "CONSENTIMIENTO")
	require.Equal(t, 1, h.session(t).Step)
}

func TestExpiredSessionIsReplaced(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyGender, recruit.Profile{FirstNames: "Ana"}))

	h.advance(2 * time.Hour)

	require.Contains(t, h.send("femenino"), "¡Hola!")
	sess := h.session(t)
	require.Zero(t, sess.Step)
	require.True(t, sess.Profile.IsZero())
}

func TestHappyPath(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	answers := []struct {
		text   string
		expect string
	}{
		{"empezar", "CONSENTIMIENTO"},
		{"Sí, acepto", "*Nombres*"},
		{"Ana", "*Apellidos*"},
		{"Quispe Rojas", "*edad*"},
		{"25", "género"},
		{"femenino", "Tipo de Documento"},
		{"dni", "*Número de Documento*"},
		{"12345678", "*Teléfono de Contacto*"},
		{"987 654 321", "*Correo electrónico*"},
		{"ana@mail.com", "Grado de instrucción"},
		{"secundaria completa", "trabajado en Hermes"},
		{"no", "modalidad"},
		{"1", "*distrito*"},
		{"Surco", "lugar de residencia"},
		{"lima", "Licencia de Conducir"},
		{"si", "tipo de licencia"},
		{"A2B", "puesto al que postulas"},
		{"8", "disponibilidad inmediata"},
		{"si", "medio te enteraste"},
		{"7", "*Martes 20/10 a las 08:30 AM*"},
	}

	for _, a := range answers {
		require.Contains(t, h.send(a.text), a.expect, "answer %q", a.text)
	}

	sess := h.session(t)
	require.Equal(t, "2026-10-20T08:30:00-05:00", sess.Profile.ProposedInterview)
	require.Equal(t, 1, h.slotter.calls)
	require.Empty(t, h.saver.saved())

	reply := h.send("Sí")
	require.Contains(t, reply, "*20/10 a las 08:30*")
	require.Contains(t, reply, DefaultAddress)

	saved := h.saver.saved()
	require.Len(t, saved, 1)
	app := saved[0]
	require.Equal(t, "51987654321", app.Phone)
	require.True(t, app.Eligible)
	require.Empty(t, app.Reasons)
	require.Equal(t, "Ana Quispe Rojas", app.FullName)
	require.Equal(t, "2026-10-20", app.InterviewDate)
	require.True(t, *app.InterviewConfirmed)
	require.Equal(t, "A2B", app.LicenseCategory)
	require.Contains(t, app.RawAnswers, "987 654 321")

	require.Len(t, h.publisher.events, 1)
	require.Equal(t, app.ID.String(), h.publisher.events[0].ApplicationID)

	sess = h.session(t)
	require.True(t, sess.Completed)
	require.Equal(t, h.flow.Len()+1, sess.Step)
	require.True(t, *sess.Eligible)
	require.Equal(t, reply, sess.FinalReply)

	// Follow-ups after completion never save again.
	require.Equal(t, reply, h.send("estado"))
	require.Equal(t, msgFollowUp, h.send("¿a qué hora llego?"))
	require.Len(t, h.saver.saved(), 1)
}

func TestFinalStepSavesOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	p := eligibleDriver()
	p.Age = intPtr(16)
	h.seed(t, h.at(t, recruit.KeyChannel, p))

	reply := h.send("referido")
	require.Equal(t, notEligible(DefaultCompany), reply)
	require.Zero(t, h.slotter.calls)

	saved := h.saver.saved()
	require.Len(t, saved, 1)
	require.False(t, saved[0].Eligible)
	require.Contains(t, saved[0].Reasons, recruit.ReasonAge)

	sess := h.session(t)
	require.True(t, sess.Completed)
	require.Equal(t, h.flow.Len()+1, sess.Step)

	h.send("gracias")
	h.send("hola")
	require.Len(t, h.saver.saved(), 1)
}

func TestPanicReleasesSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyChannel, eligibleDriver()))

	h.slotter.panics = true
	require.Panics(t, func() { h.send("referido") })
	h.slotter.panics = false

	done := make(chan string, 1)
	go func() { done <- h.send("hola") }()

	select {
	case reply := <-done:
		require.NotEmpty(t, reply)
	case <-time.After(2 * time.Second):
		t.Fatal("next message for the conversation is still blocked")
	}
}

func TestSaveFailureStillReplies(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.saver.err = errors.New("database down")
	h.publisher.err = errors.New("nats down")

	p := eligibleDriver()
	p.ProposedInterview = "2026-10-20T08:30:00-05:00"
	h.seed(t, h.at(t, recruit.KeyInterview, p))

	require.Equal(t, interviewDeclined, h.send("no"))
	require.True(t, h.session(t).Completed)
}

func TestRestartBeforeCooldown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	done := h.at(t, recruit.KeyInterview, eligibleDriver())
	done.Step = h.flow.Len() + 1
	done.Completed = true
	done.CompletionTime = h.clock()
	h.seed(t, done)

	h.advance(10 * time.Hour)

	require.Equal(t, cooldown(14), h.send("reiniciar"))
	sess := h.session(t)
	require.Equal(t, h.flow.Len()+1, sess.Step)
	require.True(t, sess.Completed)

	h.advance(14*time.Hour + time.Minute)

	require.Contains(t, h.send("reiniciar"), "CONSENTIMIENTO")
	sess = h.session(t)
	require.Equal(t, 1, sess.Step)
	require.False(t, sess.Completed)
	require.True(t, sess.Profile.IsZero())
}

func TestStatusAndRestartInEveryState(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	require.Equal(t, msgNoApplication, h.send("status"))
	require.Zero(t, h.session(t).Step)
	require.Equal(t, msgNoApplication, h.send("estado"))

	require.Contains(t, h.send("restart"), "CONSENTIMIENTO")
	require.Equal(t, 1, h.session(t).Step)
	require.Equal(t, progress(1, h.flow.Len()), h.send("status"))

	h.seed(t, h.at(t, recruit.KeyGender, recruit.Profile{FirstNames: "Ana"}))
	require.Contains(t, h.send("restart"), "CONSENTIMIENTO")
	require.Equal(t, 1, h.session(t).Step)

	done := h.at(t, recruit.KeyInterview, eligibleDriver())
	done.Step = h.flow.Len() + 1
	done.Completed = true
	done.CompletionTime = h.clock()
	done.FinalReply = "Tu entrevista quedó agendada."
	h.seed(t, done)

	require.Equal(t, "Tu entrevista quedó agendada.", h.send("status"))
	require.Equal(t, cooldown(24), h.send("restart"))
	require.True(t, h.session(t).Completed)
}

func TestRestartWhileActive(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyEmail, recruit.Profile{FirstNames: "Ana"}))

	require.Contains(t, h.send("reiniciar por favor"), "CONSENTIMIENTO")
	sess := h.session(t)
	require.Equal(t, 1, sess.Step)
	require.True(t, sess.Profile.IsZero())
}

func TestThirdIdenticalAnswerAdvances(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyGender, recruit.Profile{}))
	gender := h.stepOf(t, recruit.KeyGender)

	require.Equal(t, "Elige: Masculino, Femenino u Otros.", h.send("xyz"))
	require.Equal(t, gender, h.session(t).Step)

	h.send("XYZ ")
	require.Equal(t, gender, h.session(t).Step)

	require.Contains(t, h.send("xyz"), "Tipo de Documento")
	sess := h.session(t)
	require.Equal(t, h.stepOf(t, recruit.KeyDocumentType), sess.Step)
	require.Zero(t, sess.RetryCount)
	require.Empty(t, sess.Profile.Gender)
}

func TestDifferentInvalidAnswersKeepAsking(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyPhone, recruit.Profile{}))

	for _, text := range []string{"123", "1234", "12345", "123456"} {
		require.Contains(t, h.send(text), "dígitos")
	}

	sess := h.session(t)
	require.Equal(t, h.stepOf(t, recruit.KeyPhone), sess.Step)
	require.Equal(t, 4, sess.RetryCount)
}

func TestAgeSoftRetry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyAge, recruit.Profile{}))

	require.Contains(t, h.send("quince"), "edad")
	require.Equal(t, h.stepOf(t, recruit.KeyAge), h.session(t).Step)

	require.Contains(t, h.send("tengo 15"), "género")
	sess := h.session(t)
	require.Equal(t, h.stepOf(t, recruit.KeyGender), sess.Step)
	require.Equal(t, 15, *sess.Profile.Age)
}

func TestForcedAdvanceSkipsInapplicableQuestions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.seed(t, h.at(t, recruit.KeyResidence, recruit.Profile{}))

	h.send("no sé")
	h.send("no sé")

	// Without a province origin the city question does not apply.
	require.Contains(t, h.send("no sé"), "Licencia de Conducir")
	require.Equal(t, h.stepOf(t, recruit.KeyLicense), h.session(t).Step)

	h2 := newHarness(t, nil)
	h2.seed(t, h2.at(t, recruit.KeyCity, recruit.Profile{Origin: recruit.RegionProvince}))
	require.Contains(t, h2.send("Trujillo"), "Licencia de Conducir")
}

func TestAIFallbackFillsAnswer(t *testing.T) {
	t.Parallel()

	assistant := &fakeAI{
		enabled: true,
		result:  recruit.Result{Valid: true, Update: recruit.Profile{Age: intPtr(27)}},
	}
	h := newHarness(t, assistant)
	h.seed(t, h.at(t, recruit.KeyAge, recruit.Profile{}))

	require.Contains(t, h.send("veintisiete"), "género")
	require.Equal(t, 27, *h.session(t).Profile.Age)

	require.Len(t, assistant.requests, 1)
	req := assistant.requests[0]
	require.Equal(t, recruit.KeyAge, req.Key)
	require.Equal(t, "veintisiete", req.Text)
	require.NotEmpty(t, req.History)
	require.Equal(t, ai.RoleUser, req.History[len(req.History)-1].Role)
}

func TestAIParaphrasesClarification(t *testing.T) {
	t.Parallel()

	assistant := &fakeAI{enabled: true, reply: "Creo que faltó un número, ¿me lo repites?"}
	h := newHarness(t, assistant)
	h.seed(t, h.at(t, recruit.KeyPhone, recruit.Profile{}))

	require.Equal(t, assistant.reply, h.send("98765"))
	require.Len(t, assistant.contexts, 1)
	require.Contains(t, assistant.contexts[0], "Detecté 5 dígitos")
}

func TestFollowUpUsesSummary(t *testing.T) {
	t.Parallel()

	assistant := &fakeAI{enabled: true, reply: "¡Te esperamos!"}
	h := newHarness(t, assistant)

	p := eligibleDriver()
	p.InterviewDate = "2026-10-20T08:30:00-05:00"
	p.InterviewConfirmed = boolPtr(true)
	done := h.at(t, recruit.KeyInterview, p)
	done.Step = h.flow.Len() + 1
	done.Completed = true
	done.CompletionTime = h.clock()
	done.Eligible = boolPtr(true)
	h.seed(t, done)

	require.Equal(t, "¡Te esperamos!", h.send("¿dónde queda?"))
	require.Len(t, assistant.contexts, 1)

	summary := assistant.contexts[0]
	require.True(t, strings.HasPrefix(summary, "Estado del postulante: APTO"))
	require.Contains(t, summary, "Entrevista confirmada: 20/10/2026 a las 08:30")
	require.Contains(t, summary, DefaultAddress)
}
