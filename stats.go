package main

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PhaseStats accumulates per-request outcomes for one scheduling phase.
// Recorded from the single goroutine that resolves the phase's requests.
type PhaseStats struct {
	Phase    string
	Requests int
	Failures int
	Statuses map[int]int

	total time.Duration
	min   time.Duration
	max   time.Duration
}

func NewPhaseStats(phase string) *PhaseStats {
	return &PhaseStats{
		Phase:    phase,
		Statuses: make(map[int]int),
	}
}

func (s *PhaseStats) Record(o Outcome) {
	s.Requests++
	if o.Failed() {
		s.Failures++
	} else {
		s.Statuses[o.Status]++
	}

	s.total += o.Elapsed
	if s.min == 0 || o.Elapsed < s.min {
		s.min = o.Elapsed
	}
	if o.Elapsed > s.max {
		s.max = o.Elapsed
	}
}

// String summarizes the phase: counts per status, failures, and latency range.
func (s *PhaseStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d requests", s.Phase, s.Requests)

	codes := make([]int, 0, len(s.Statuses))
	for code := range s.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, ", %d x %d", s.Statuses[code], code)
	}
	if s.Failures > 0 {
		fmt.Fprintf(&b, ", %d failed", s.Failures)
	}
	if s.Requests > 0 {
		avg := s.total / time.Duration(s.Requests)
		fmt.Fprintf(&b, " (min %s / avg %s / max %s)",
			s.min.Round(time.Millisecond),
			avg.Round(time.Millisecond),
			s.max.Round(time.Millisecond))
	}
	return b.String()
}
