// loadgen generates synthetic HTTP traffic against the obsdemo service. The
// service lives in cmd/demosvc; this tool exists to keep its logs, metrics,
// and traces populated for demos.
//
// Traffic runs in cycles, each consisting of:
//
//   - a steady phase: a fixed request rate sustained for a fixed duration.
//     Submissions are spaced evenly (interval = 1/rate) and fan out over a
//     fixed-size worker pool, so concurrency is bounded no matter the rate.
//     At the end of each one-second window the scheduler waits for that
//     window's requests to resolve before checking the phase deadline.
//
//   - a burst phase: a fixed number of requests submitted all at once over a
//     larger worker pool, then joined.
//
//   - a rest interval.
//
// Each request targets a uniformly-random endpoint from the configured set.
// Outcomes (status code or transport error) are printed as they resolve and
// summarized per phase; a failing request never aborts its phase.
//
// Before the first cycle the generator polls the target's /health endpoint
// until it answers 200. By default it polls forever -- the demo target may
// take arbitrarily long to come up -- which is a deliberate permissiveness
// that shouldn't be copied into anything production-facing.
package main
