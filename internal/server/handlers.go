package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"pgregory.net/rand"
)

const (
	slowDelayMin = 1.0
	slowDelayMax = 3.0
)

// Handlers is the demo handler set. Each handler is free to append span
// attributes and decide its own status; the pipeline owns everything else.
type Handlers struct {
	log *zap.Logger

	// sleep and slowDelay are injectable so the slow route is testable
	// without real waiting.
	sleep     func(time.Duration)
	slowDelay func() float64
}

// HandlerOption adjusts the handler set at construction.
type HandlerOption func(*Handlers)

// WithSleep substitutes the slow route's sleep.
func WithSleep(sleep func(time.Duration)) HandlerOption {
	return func(h *Handlers) { h.sleep = sleep }
}

// WithSlowDelay substitutes the slow route's delay source.
func WithSlowDelay(delay func() float64) HandlerOption {
	return func(h *Handlers) { h.slowDelay = delay }
}

func NewHandlers(log *zap.Logger, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		log:   log,
		sleep: time.Sleep,
		slowDelay: func() float64 {
			return slowDelayMin + rand.Float64()*(slowDelayMax-slowDelayMin)
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type messageBody struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type healthBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type slowBody struct {
	Message   string  `json:"message"`
	Delay     float64 `json:"delay"`
	Timestamp string  `json:"timestamp"`
}

type errorBody struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

type userBody struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Timestamp string `json:"timestamp"`
}

func timestamp() string {
	return time.Now().Format(time.RFC3339Nano)
}

// Root answers the landing route.
func (h *Handlers) Root(r *http.Request, span trace.Span) Result {
	h.log.Info("root endpoint accessed")
	return OK(messageBody{Message: "Hello World!", Timestamp: timestamp()})
}

// Health is the readiness probe target.
func (h *Handlers) Health(r *http.Request, span trace.Span) Result {
	h.log.Info("health check requested")
	return OK(healthBody{Status: "healthy", Timestamp: timestamp()})
}

// Slow sleeps for a random 1-3 seconds to exercise the latency histogram.
func (h *Handlers) Slow(r *http.Request, span trace.Span) Result {
	delay := h.slowDelay()
	span.SetAttributes(attribute.Float64("delay_seconds", delay))

	h.log.Info("slow endpoint called", zap.String("delay", fmt.Sprintf("%.2fs", delay)))
	h.sleep(time.Duration(delay * float64(time.Second)))
	h.log.Info("slow endpoint completed")

	return OK(slowBody{Message: "This was slow!", Delay: delay, Timestamp: timestamp()})
}

// SimulatedError deliberately fails with a 500 to exercise the error path.
// The failure is a simulated condition, not a defect, so it travels back as
// a typed result and the pipeline records it on the span.
func (h *Handlers) SimulatedError(r *http.Request, span trace.Span) Result {
	h.log.Error("error endpoint accessed, simulating server error")
	return Result{
		Status: http.StatusInternalServerError,
		Body:   errorBody{Error: "Simulated server error", Timestamp: timestamp()},
		Err:    errors.New("simulated error"),
	}
}

// User serves a synthetic user document for /users/{userID}.
func (h *Handlers) User(r *http.Request, span trace.Span) Result {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return Result{
			Status: http.StatusBadRequest,
			Body:   errorBody{Error: fmt.Sprintf("invalid user id %q", raw), Timestamp: timestamp()},
			Err:    fmt.Errorf("parsing user id: %w", err),
		}
	}
	span.SetAttributes(attribute.Int("user_id", id))

	h.log.Info("fetching user", zap.Int("user_id", id))
	return OK(userBody{
		ID:        id,
		Name:      fmt.Sprintf("User %d", id),
		Email:     fmt.Sprintf("user%d@example.com", id),
		Timestamp: timestamp(),
	})
}
