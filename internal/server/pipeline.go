package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/observelab/obsdemo/internal/obs"
)

// ProcessTimeHeader carries the request's elapsed time back to the caller,
// in seconds, stringified.
const ProcessTimeHeader = "X-Process-Time"

// Result is what a handler produces: a status, a JSON body, and an optional
// failure. A non-nil Err marks the request as failed on its span, but it is
// still a normal completed request as far as metrics and logging go.
type Result struct {
	Status int
	Body   any
	Err    error
}

// OK wraps a 200 response.
func OK(body any) Result {
	return Result{Status: http.StatusOK, Body: body}
}

// HandlerFunc is one route's business logic. The span is the request's open
// span; handlers may append attributes to it but must not end it.
type HandlerFunc func(r *http.Request, span trace.Span) Result

// Pipeline runs every request through the same ordered stages:
//
//	pre      clock start, span open, entry log
//	invoke   the route handler, with panics converted to a 500 result
//	post     elapsed time, counter + latency metrics, completion log,
//	         timing header, response body, span close
//
// The stages are explicit methods rather than nested middleware so the
// ordering is readable in one place. Everything the pipeline touches is
// per-request except the collector, which is safe for concurrent use.
type Pipeline struct {
	log     *zap.Logger
	metrics *obs.Collector
	tracer  trace.Tracer
	clock   clockz.Clock
}

// PipelineOption adjusts a Pipeline at construction.
type PipelineOption func(*Pipeline)

// WithClock substitutes the time source, for deterministic tests.
func WithClock(clock clockz.Clock) PipelineOption {
	return func(p *Pipeline) { p.clock = clock }
}

func NewPipeline(log *zap.Logger, metrics *obs.Collector, tracer trace.Tracer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		log:     log,
		metrics: metrics,
		tracer:  tracer,
		clock:   clockz.RealClock,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// request is the per-invocation state threaded through the stages. Owned by
// a single goroutine; discarded when the invocation completes.
type request struct {
	route string
	start time.Time
	span  trace.Span
	r     *http.Request
}

// Handle instruments a handler under the given route pattern. The pattern is
// the span name and the metrics endpoint label, keeping label cardinality
// bounded for parameterized routes.
func (p *Pipeline) Handle(route string, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := p.pre(route, r)
		res := p.invoke(req, h)
		p.post(w, req, res)
	}
}

func (p *Pipeline) pre(route string, r *http.Request) *request {
	start := p.clock.Now()

	ctx, span := p.tracer.Start(r.Context(), route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("endpoint", route),
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		),
	)

	p.log.Info("incoming request",
		zap.String("method", r.Method),
		zap.String("url", r.URL.String()),
	)

	return &request{
		route: route,
		start: start,
		span:  span,
		r:     r.WithContext(ctx),
	}
}

func (p *Pipeline) invoke(req *request, h HandlerFunc) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("handler panic: %v", rec)
			p.log.Error("unexpected handler failure",
				zap.String("method", req.r.Method),
				zap.String("path", req.r.URL.Path),
				zap.Time("at", p.clock.Now()),
				zap.Error(err),
			)
			res = Result{
				Status: http.StatusInternalServerError,
				Body:   map[string]string{"error": "internal server error"},
				Err:    err,
			}
		}
	}()
	return h(req.r, req.span)
}

func (p *Pipeline) post(w http.ResponseWriter, req *request, res Result) {
	elapsed := p.clock.Now().Sub(req.start)
	seconds := elapsed.Seconds()

	p.metrics.IncRequest(req.r.Method, req.route, res.Status)
	p.metrics.ObserveLatency(seconds)

	p.log.Info("request completed",
		zap.String("method", req.r.Method),
		zap.String("path", req.r.URL.Path),
		zap.Int("status", res.Status),
		zap.String("duration", fmt.Sprintf("%.4fs", seconds)),
	)

	w.Header().Set(ProcessTimeHeader, strconv.FormatFloat(seconds, 'f', -1, 64))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	if res.Body != nil {
		if err := json.NewEncoder(w).Encode(res.Body); err != nil {
			p.log.Error("writing response body",
				zap.String("path", req.r.URL.Path),
				zap.Error(err),
			)
		}
	}

	req.span.SetAttributes(attribute.Int("http.status_code", res.Status))
	if res.Err != nil {
		req.span.RecordError(res.Err)
		req.span.SetStatus(codes.Error, res.Err.Error())
	} else if res.Status >= http.StatusInternalServerError {
		req.span.SetStatus(codes.Error, http.StatusText(res.Status))
	}
	req.span.End()
}
