package main

import (
	"context"
	"net/http"
	"time"
)

// WaitUntilReady polls the probe endpoint until it answers 200, sleeping
// interval between attempts. Connection failures and unexpected statuses
// both count as "not ready". With no deadline on ctx it polls forever;
// that's the intended demo behavior, so callers wanting a bound wrap ctx
// with a timeout.
func WaitUntilReady(ctx context.Context, req Requester, endpoint string, interval time.Duration, log Logger) error {
	for {
		o := req.Do(ctx, endpoint)
		if !o.Failed() && o.Status == http.StatusOK {
			return nil
		}
		if o.Failed() {
			log.Debug("probe failed: %v\n", o.Err)
		} else {
			log.Debug("probe returned %d\n", o.Status)
		}
		log.Info("service not ready, waiting...\n")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
