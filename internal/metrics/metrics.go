// Package metrics holds the prometheus collectors of the bot.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Message outcomes.
const (
	OutcomeAnswered  = "answered"
	OutcomeRetry     = "retry"
	OutcomeForced    = "forced"
	OutcomeCompleted = "completed"
	OutcomeCommand   = "command"
	OutcomeIdle      = "idle"
	OutcomeFollowUp  = "follow_up"
	OutcomeError     = "error"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruit_messages_total",
			Help: "Inbound chat messages processed by outcome",
		},
		[]string{"outcome"},
	)
	ApplicationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruit_applications_total",
			Help: "Completed applications by eligibility",
		},
		[]string{"eligible"},
	)
	SavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruit_application_saves_total",
			Help: "Application writes by backend and result",
		},
		[]string{"backend", "result"},
	)
	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruit_ai_requests_total",
			Help: "AI collaborator calls by operation and result",
		},
		[]string{"operation", "result"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruit_ai_request_duration_seconds",
			Help:    "AI collaborator call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"operation"},
	)
	GatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruit_gateway_requests_total",
			Help: "Messaging gateway calls by operation and result",
		},
		[]string{"operation", "result"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. It is safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MessagesTotal,
			ApplicationsTotal,
			SavesTotal,
			AIRequestsTotal,
			AIRequestDuration,
			GatewayRequestsTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Message counts one processed inbound message.
func Message(outcome string) {
	MessagesTotal.WithLabelValues(outcome).Inc()
}

// Application counts one finalized application.
func Application(eligible bool) {
	label := "false"
	if eligible {
		label = "true"
	}
	ApplicationsTotal.WithLabelValues(label).Inc()
}

// Save counts one repository write.
func Save(backend string, err error) {
	SavesTotal.WithLabelValues(backend, result(err)).Inc()
}

// AIRequest records one AI collaborator call.
func AIRequest(operation string, started time.Time, err error) {
	AIRequestsTotal.WithLabelValues(operation, result(err)).Inc()
	AIRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Gateway counts one messaging gateway call.
func Gateway(operation string, err error) {
	GatewayRequestsTotal.WithLabelValues(operation, result(err)).Inc()
}

// HTTPMiddleware records request count and latency per chi route pattern.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = "unmatched"
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
