package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Outcome is the resolved result of one synthetic request: either a status
// code or a transport failure, plus how long it took.
type Outcome struct {
	Endpoint string
	Status   int
	Err      error
	Elapsed  time.Duration
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

// String renders the outcome the way it is printed per request.
func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s -> error: %v", o.Endpoint, o.Err)
	}
	return fmt.Sprintf("%s -> %d", o.Endpoint, o.Status)
}

// A Requester issues one call against the target and resolves its outcome.
// Transport failures are part of the outcome, never a returned error: a
// failed request is data, not a reason to stop the phase.
type Requester interface {
	Do(ctx context.Context, endpoint string) Outcome
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(ctx context.Context, endpoint string) Outcome

func (f RequesterFunc) Do(ctx context.Context, endpoint string) Outcome {
	return f(ctx, endpoint)
}

// make sure it implements Requester
var _ Requester = (*HTTPRequester)(nil)

// HTTPRequester calls the target service over HTTP with a conservative
// client-side timeout so a stalled target can't block a worker forever.
type HTTPRequester struct {
	base   *url.URL
	client *http.Client
}

func NewHTTPRequester(base *url.URL, timeout time.Duration) *HTTPRequester {
	return &HTTPRequester{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPRequester) Do(ctx context.Context, endpoint string) Outcome {
	target := h.base.JoinPath(endpoint).String()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Endpoint: endpoint, Err: err, Elapsed: time.Since(start)}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return Outcome{Endpoint: endpoint, Err: err, Elapsed: time.Since(start)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return Outcome{Endpoint: endpoint, Status: resp.StatusCode, Elapsed: time.Since(start)}
}
