package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dgryski/go-wyhash"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rand"
)

// pending is one in-flight synthetic request: the endpoint it targets and a
// slot its outcome arrives on. Owned by the scheduler until resolved.
type pending struct {
	endpoint string
	out      chan Outcome
}

func newPending(endpoint string) *pending {
	return &pending{endpoint: endpoint, out: make(chan Outcome, 1)}
}

func (p *pending) wait() Outcome {
	return <-p.out
}

// SchedulerConfig sizes the scheduler's worker pools. The pools are fixed
// size regardless of rate so a large rate can't balloon resource usage.
type SchedulerConfig struct {
	Endpoints     []string
	SteadyWorkers int
	BurstWorkers  int
	Seed          string

	// OnOutcome is called from worker goroutines as each request resolves.
	// Defaults to printing the outcome to stdout.
	OnOutcome func(Outcome)
}

// Scheduler drives concurrent requests against the target: steady phases at
// a fixed rate, and bursts at maximal concurrency. Individual request
// failures are recorded, never fatal to a phase.
type Scheduler struct {
	req       Requester
	endpoints []string
	steady    int
	burst     int
	onOutcome func(Outcome)
	rng       *rand.Rand
	log       Logger
}

func NewScheduler(req Requester, cfg SchedulerConfig, log Logger) *Scheduler {
	onOutcome := cfg.OnOutcome
	if onOutcome == nil {
		onOutcome = func(o Outcome) { fmt.Printf("  %s\n", o) }
	}
	return &Scheduler{
		req:       req,
		endpoints: cfg.Endpoints,
		steady:    cfg.SteadyWorkers,
		burst:     cfg.BurstWorkers,
		onOutcome: onOutcome,
		rng:       newRng(cfg.Seed),
		log:       log,
	}
}

func newRng(seed string) *rand.Rand {
	if seed == "" {
		return rand.New()
	}
	return rand.New(wyhash.Hash([]byte(seed), 2467825690))
}

func (s *Scheduler) pickEndpoint() string {
	return s.endpoints[s.rng.Intn(len(s.endpoints))]
}

// pool starts size workers drawing tasks from the returned channel. The
// drain func closes submission and joins the workers. Workers deliberately
// run requests on an uncancellable context: cancellation stops new
// submissions, but whatever is already in flight is left to finish under the
// client's own timeout.
func (s *Scheduler) pool(ctx context.Context, size int) (chan<- *pending, func()) {
	tasks := make(chan *pending)
	reqCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i := 0; i < size; i++ {
		g.Go(func() error {
			for p := range tasks {
				o := s.req.Do(reqCtx, p.endpoint)
				s.onOutcome(o)
				p.out <- o
			}
			return nil
		})
	}
	return tasks, func() {
		close(tasks)
		g.Wait()
	}
}

// RunSteady issues rate requests per one-second window for the given
// duration, spacing submissions evenly within each window and waiting for a
// window's outcomes before checking the deadline. Submission blocks only to
// pace itself or when all workers are busy, never on a single request.
func (s *Scheduler) RunSteady(ctx context.Context, duration time.Duration, rate int) *PhaseStats {
	stats := NewPhaseStats("steady")
	if rate <= 0 {
		return stats
	}

	interval := time.Second / time.Duration(rate)
	tasks, drain := s.pool(ctx, s.steady)
	defer drain()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) && ctx.Err() == nil {
		window := make([]*pending, 0, rate)
		for i := 0; i < rate; i++ {
			p := newPending(s.pickEndpoint())
			tasks <- p
			window = append(window, p)
			if !sleepCtx(ctx, interval) {
				break
			}
		}
		for _, p := range window {
			stats.Record(p.wait())
		}
	}

	s.log.Debug("steady phase done after %d requests\n", stats.Requests)
	return stats
}

// RunBurst submits n concurrent requests and waits for every one of them to
// resolve, success or failure, before returning.
func (s *Scheduler) RunBurst(ctx context.Context, n int) *PhaseStats {
	stats := NewPhaseStats("burst")

	tasks, drain := s.pool(ctx, s.burst)
	defer drain()

	window := make([]*pending, 0, n)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		p := newPending(s.pickEndpoint())
		tasks <- p
		window = append(window, p)
	}
	for _, p := range window {
		stats.Record(p.wait())
	}

	s.log.Debug("burst phase done after %d requests\n", stats.Requests)
	return stats
}

// sleepCtx sleeps for d unless ctx is cancelled first; reports whether the
// full sleep happened.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
