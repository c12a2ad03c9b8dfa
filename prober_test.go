package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitUntilReady(t *testing.T) {
	var attempts atomic.Int64
	req := RequesterFunc(func(ctx context.Context, endpoint string) Outcome {
		switch attempts.Add(1) {
		case 1:
			return Outcome{Endpoint: endpoint, Err: errors.New("connection refused")}
		case 2:
			return Outcome{Endpoint: endpoint, Status: http.StatusServiceUnavailable}
		default:
			return Outcome{Endpoint: endpoint, Status: http.StatusOK}
		}
	})

	err := WaitUntilReady(context.Background(), req, "/health", time.Millisecond, NewLogger(0))
	if err != nil {
		t.Fatalf("expected prober to succeed, got %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 probes, got %d", got)
	}
}

func TestWaitUntilReady_KeepsPollingWhileNotReady(t *testing.T) {
	var attempts atomic.Int64
	req := RequesterFunc(func(ctx context.Context, endpoint string) Outcome {
		attempts.Add(1)
		return Outcome{Endpoint: endpoint, Status: http.StatusInternalServerError}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := WaitUntilReady(ctx, req, "/health", 5*time.Millisecond, NewLogger(0))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if attempts.Load() < 2 {
		t.Errorf("expected repeated probes before giving up, got %d", attempts.Load())
	}
}
