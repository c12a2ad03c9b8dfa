package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/observelab/obsdemo/internal/obs"
	"github.com/observelab/obsdemo/internal/server"
)

// Options defines the command line arguments
type Options struct {
	Addr      string `long:"addr" description:"address to listen on" default:":8000"`
	Service   string `long:"service" description:"service name reported on spans and metrics" default:"demosvc"`
	Collector string `long:"collector" description:"endpoint of the trace collection agent" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
	TraceOut  string `long:"traceout" description:"where to send spans" choice:"otlp-grpc" choice:"otlp-http" choice:"stdout" choice:"none" default:"otlp-grpc"`
	Insecure  bool   `long:"insecure" description:"use this for insecure (non-TLS) connections to the collector"`
	LogLevel  string `long:"loglevel" description:"level of logging" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = `[OPTIONS]

	demosvc is a small HTTP service instrumented for observability. Every
	request produces correlated structured logs, a counter and latency sample
	on /metrics, and a trace span forwarded to a collection agent. Its routes
	exist to exercise the instrumentation: /slow sleeps 1-3 seconds, /error
	deliberately returns a 500, and /users/{id} returns synthetic data.
	`
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("error reading command line: %v", err)
	}

	logger, err := obs.NewLogger(opts.LogLevel)
	if err != nil {
		log.Fatalf("unable to configure logging: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := obs.InitTracing(ctx, obs.TracingConfig{
		ServiceName: opts.Service,
		Endpoint:    opts.Collector,
		Exporter:    opts.TraceOut,
		Insecure:    opts.Insecure,
	})
	if err != nil {
		logger.Fatal("unable to configure tracing", zap.Error(err))
	}

	metrics := obs.NewCollector("")
	pipeline := server.NewPipeline(logger, metrics, tp.Tracer())
	handlers := server.NewHandlers(logger)

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: server.NewRouter(pipeline, handlers, metrics),
	}

	go func() {
		logger.Info("starting server", zap.String("addr", opts.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// let in-flight requests (including /slow) drain before flushing telemetry
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown", zap.Error(err))
	}
}
