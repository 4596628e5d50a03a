package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/recruit-bot/internal/dialogue"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/session"
	"github.com/spigell/recruit-bot/internal/storage"
	"github.com/stretchr/testify/require"
)

type processorFunc func(ctx context.Context, id, text string) string

func (f processorFunc) Process(ctx context.Context, id, text string) string { return f(ctx, id, text) }

type fakeGateway struct {
	mu      sync.Mutex
	events  []string
	sent    []string
	sendErr error
}

func (g *fakeGateway) SendText(_ context.Context, chatID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, "send:"+chatID)
	g.sent = append(g.sent, text)
	return g.sendErr
}

func (g *fakeGateway) SendSeen(_ context.Context, chatID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, "seen:"+chatID)
}

func (g *fakeGateway) StartTyping(_ context.Context, chatID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, "start:"+chatID)
}

func (g *fakeGateway) StopTyping(_ context.Context, chatID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, "stop:"+chatID)
}

func (g *fakeGateway) snapshot() ([]string, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...), append([]string(nil), g.sent...)
}

type fakeApplications struct {
	apps   []storage.Application
	filter storage.Filter
	phone  string
	err    error
}

func (f *fakeApplications) GetApplication(_ context.Context, phone string) (*storage.Application, error) {
	f.phone = phone
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.apps {
		if f.apps[i].Phone == phone {
			return &f.apps[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeApplications) ListApplications(_ context.Context, filter storage.Filter) ([]storage.Application, error) {
	f.filter = filter
	return f.apps, f.err
}

func (f *fakeApplications) Stats(context.Context) (storage.Stats, error) {
	if f.err != nil {
		return storage.Stats{}, f.err
	}
	return storage.Stats{Total: 2, Eligible: 1, Ineligible: 1, Rate: 50, ByPosition: map[string]int{"Digitadores": 2}}, nil
}

type fixture struct {
	server  *Server
	gateway *fakeGateway
	apps    *fakeApplications
	store   *session.Store

	mu       sync.Mutex
	received []string
}

func newFixture(t *testing.T, proc Processor) *fixture {
	t.Helper()

	f := &fixture{
		gateway: &fakeGateway{},
		apps:    &fakeApplications{},
		store:   session.NewStore(nil, session.Config{}),
	}
	if proc == nil {
		proc = processorFunc(func(_ context.Context, id, text string) string {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.received = append(f.received, id+"|"+text)
			return "eco: " + text
		})
	}

	srv, err := NewServer(Config{}, Deps{
		Processor:    proc,
		Gateway:      f.gateway,
		Sessions:     f.store,
		Applications: f.apps,
	})
	require.NoError(t, err)
	srv.cfg.TypingDelay = 0
	f.server = srv

	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServerRequiresDeps(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Config{}, Deps{})
	require.Error(t, err)
}

func TestWebhookRepliesInOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	body := `{"event":"message","payload":{
		"_data":{"id":{"user":"51987654321","remote":"12345@lid"}},
		"from":"12345@lid",
		"body":"hola"}}`

	rec := f.do(t, http.MethodPost, "/chatbot/webhook", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, decode(t, rec)["processed"])

	events, sent := f.gateway.snapshot()
	require.Equal(t, []string{
		"seen:51987654321@c.us",
		"start:51987654321@c.us",
		"send:51987654321@c.us",
		"stop:51987654321@c.us",
	}, events)
	require.Equal(t, []string{"eco: hola"}, sent)
	require.Equal(t, []string{"51987654321@c.us|hola"}, f.received)
}

func TestWebhookIgnores(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body   string
		reason string
	}{
		"group":     {`{"event":"message","payload":{"from":"123-456@g.us","body":"hola"}}`, "group/broadcast"},
		"broadcast": {`{"event":"message","payload":{"from":"status@broadcast","body":"hola"}}`, "group/broadcast"},
		"from me":   {`{"event":"message","payload":{"from":"51911111111@c.us","fromMe":true,"body":"hola"}}`, "message from bot"},
		"ack event": {`{"event":"message.ack","payload":{"from":"51911111111@c.us"}}`, ""},
		"status":    {`{"event":"session.status","payload":{"from":"51911111111@c.us"}}`, "event session.status not handled"},
		"no chat":   {`{"event":"message","payload":{"body":"hola"}}`, "no chat_id"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)
			rec := f.do(t, http.MethodPost, "/chatbot/webhook/", tc.body)
			require.Equal(t, http.StatusOK, rec.Code)

			if tc.reason == "" {
				require.Equal(t, "ok", decode(t, rec)["status"])
				return
			}

			out := decode(t, rec)
			require.Equal(t, "ignored", out["status"])
			require.Equal(t, tc.reason, out["reason"])

			events, _ := f.gateway.snapshot()
			require.Empty(t, events)
		})
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/chatbot/webhook", "{").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/chatbot/webhook", `{"payload":"x"}`).Code)
}

func TestClassifyExtractsChatAndText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		raw    map[string]any
		chatID string
		text   string
	}{
		{
			name:   "remote when user is not numeric",
			raw:    map[string]any{"payload": map[string]any{"_data": map[string]any{"id": map[string]any{"user": "abc", "remote": "51900000000@c.us"}}, "text": "si"}},
			chatID: "51900000000@c.us",
			text:   "si",
		},
		{
			name:   "group remote falls back to top level",
			raw:    map[string]any{"payload": map[string]any{"_data": map[string]any{"id": map[string]any{"remote": "1-2@g.us"}}, "chatId": "51900000001@c.us", "caption": "foto"}},
			chatID: "51900000001@c.us",
			text:   "foto",
		},
		{
			name:   "nested message body",
			raw:    map[string]any{"payload": map[string]any{"sender": "51900000002@c.us", "message": map[string]any{"body": "empezar"}}},
			chatID: "51900000002@c.us",
			text:   "empezar",
		},
		{
			name:   "string message and author",
			raw:    map[string]any{"payload": map[string]any{"author": "51900000003@c.us", "message": "25"}},
			chatID: "51900000003@c.us",
			text:   "25",
		},
		{
			name:   "numeric user id",
			raw:    map[string]any{"payload": map[string]any{"_data": map[string]any{"id": "opaque"}, "from": "51900000004@c.us", "body": 42}},
			chatID: "51900000004@c.us",
			text:   "42",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := decodeEnvelope(tc.raw)
			require.NoError(t, err)

			msg, reason := classify(env)
			require.Empty(t, reason)
			require.Equal(t, tc.chatID, msg.chatID)
			require.Equal(t, tc.text, msg.text)
		})
	}
}

func TestWebhookRecoversPanic(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processorFunc(func(context.Context, string, string) string {
		panic("boom")
	}))

	rec := f.do(t, http.MethodPost, "/chatbot/webhook", `{"event":"message","payload":{"from":"51911111111@c.us","body":"hola"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events, sent := f.gateway.snapshot()
	require.Equal(t, []string{dialogue.MsgApology}, sent)
	require.Equal(t, "stop:51911111111@c.us", events[len(events)-1])
}

func TestWebhookEmptyReplyAndSendFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, processorFunc(func(context.Context, string, string) string { return "  " }))
	f.gateway.sendErr = errors.New("waha down")

	rec := f.do(t, http.MethodPost, "/chatbot/webhook", `{"event":"message","payload":{"from":"51911111111@c.us","body":"hola"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events, sent := f.gateway.snapshot()
	require.Equal(t, []string{msgNoReply, msgSendFailed}, sent)
	require.Equal(t, []string{
		"seen:51911111111@c.us",
		"start:51911111111@c.us",
		"send:51911111111@c.us",
		"send:51911111111@c.us",
		"stop:51911111111@c.us",
	}, events)
}

func TestWebhookWaitsTypingDelay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.server.cfg.TypingDelay = 30 * time.Millisecond

	start := time.Now()
	f.do(t, http.MethodPost, "/chatbot/webhook", `{"event":"message","payload":{"from":"51911111111@c.us","body":"hola"}}`)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestHealthCountsActiveSessions(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	ctx := context.Background()
	for _, id := range []string{"a@c.us", "b@c.us"} {
		_, err := f.store.Acquire(ctx, id)
		require.NoError(t, err)
		f.store.Release(ctx, id, session.New(time.Now()))
	}

	out := decode(t, f.do(t, http.MethodGet, "/health", ""))
	require.Equal(t, "ok", out["status"])
	require.EqualValues(t, 2, out["sessions_active"])

	out = decode(t, f.do(t, http.MethodGet, "/", ""))
	require.Equal(t, serviceName, out["service"])
}

func TestSessionsRoute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	ctx := context.Background()
	_, err := f.store.Acquire(ctx, "a@c.us")
	require.NoError(t, err)
	sess := session.New(time.Now())
	sess.Step = 3
	sess.Profile = recruit.Profile{FirstNames: "Ana"}
	f.store.Release(ctx, "a@c.us", sess)

	rec := f.do(t, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]sessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, 3, out["a@c.us"].Step)
	require.Equal(t, "Ana", out["a@c.us"].Data.FirstNames)
	require.NotNil(t, out["a@c.us"].LastActivity)
}

func TestApplicationRoutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.apps.apps = []storage.Application{{Phone: "51911111111", PositionName: "Digitadores", Eligible: true}}

	rec := f.do(t, http.MethodGet, "/postulantes?limit=5&es_apto=TRUE", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, decode(t, rec)["total"])
	require.Equal(t, 5, f.apps.filter.Limit)
	require.True(t, *f.apps.filter.Eligible)

	f.do(t, http.MethodGet, "/postulantes?es_apto=no", "")
	require.False(t, *f.apps.filter.Eligible)
	require.Zero(t, f.apps.filter.Limit)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/postulantes?limit=x", "").Code)

	rec = f.do(t, http.MethodGet, "/postulantes/51911111111@c.us", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "51911111111", f.apps.phone)
	require.Equal(t, "Digitadores", decode(t, rec)["puesto_name"])

	rec = f.do(t, http.MethodGet, "/postulantes/51900000000", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Postulante no encontrado", decode(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/postulantes/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	require.EqualValues(t, 2, out["total_postulantes"])
	require.EqualValues(t, 50, out["tasa_aprobacion"])

	f.apps.err = errors.New("db down")
	rec = f.do(t, http.MethodGet, "/postulantes/stats", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "db down")
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
