package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func newTestTarget(t *testing.T) (*httptest.Server, *url.URL) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return srv, u
}

func TestHTTPRequester(t *testing.T) {
	_, base := newTestTarget(t)
	req := NewHTTPRequester(base, time.Second)

	t.Run("success", func(t *testing.T) {
		o := req.Do(context.Background(), "/health")
		if o.Failed() {
			t.Fatalf("unexpected failure: %v", o.Err)
		}
		if o.Status != http.StatusOK {
			t.Errorf("expected 200, got %d", o.Status)
		}
		if o.Elapsed <= 0 {
			t.Errorf("expected positive elapsed time, got %s", o.Elapsed)
		}
	})

	t.Run("server error is a completed outcome", func(t *testing.T) {
		o := req.Do(context.Background(), "/error")
		if o.Failed() {
			t.Fatalf("a 500 is not a transport failure: %v", o.Err)
		}
		if o.Status != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", o.Status)
		}
	})
}

func TestHTTPRequester_ConnectionRefused(t *testing.T) {
	srv, base := newTestTarget(t)
	srv.Close()

	req := NewHTTPRequester(base, time.Second)
	o := req.Do(context.Background(), "/health")
	if !o.Failed() {
		t.Fatalf("expected a transport failure, got status %d", o.Status)
	}
	if o.Endpoint != "/health" {
		t.Errorf("failure should keep its endpoint, got %q", o.Endpoint)
	}
}

func TestScheduler_AgainstHTTPTarget(t *testing.T) {
	_, base := newTestTarget(t)
	req := NewHTTPRequester(base, time.Second)

	sched := NewScheduler(req, SchedulerConfig{
		Endpoints:     []string{"/health", "/error", "/missing"},
		SteadyWorkers: 5,
		BurstWorkers:  10,
		Seed:          "test",
		OnOutcome:     func(Outcome) {},
	}, NewLogger(0))

	stats := sched.RunBurst(context.Background(), 30)
	if stats.Requests != 30 {
		t.Fatalf("expected all 30 requests resolved, got %d", stats.Requests)
	}
	if stats.Failures != 0 {
		t.Errorf("expected no transport failures against a live server, got %d", stats.Failures)
	}
	total := 0
	for _, n := range stats.Statuses {
		total += n
	}
	if total != 30 {
		t.Errorf("status counts should cover every request, got %d", total)
	}
}

func TestOutcomeString(t *testing.T) {
	o := Outcome{Endpoint: "/slow", Status: 200}
	if got := o.String(); got != "/slow -> 200" {
		t.Errorf("unexpected format: %q", got)
	}
}
