// Package stats tracks per-source poll outcomes for observability commands.
package stats

import (
	"sync"
	"time"

	"internwatch/internal/clock"
)

// SourceStats is a copy of one source's counters at a point in time.
type SourceStats struct {
	LastSuccess         time.Time
	LastFailure         time.Time
	LastError           string
	TotalFetches        int64
	TotalIngested       int64
	TotalSkipped        int64
	ConsecutiveFailures int
}

// Recorder accumulates per-source counters. Safe for concurrent use by the
// pollers and readers.
type Recorder struct {
	mu      sync.Mutex
	clock   clock.Clock
	sources map[string]*SourceStats
}

func NewRecorder(clk clock.Clock) *Recorder {
	return &Recorder{
		clock:   clk,
		sources: make(map[string]*SourceStats),
	}
}

func (r *Recorder) get(source string) *SourceStats {
	st, ok := r.sources[source]
	if !ok {
		st = &SourceStats{}
		r.sources[source] = st
	}
	return st
}

// RecordSuccess notes a completed poll cycle for source.
func (r *Recorder) RecordSuccess(source string, ingested, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.get(source)
	st.LastSuccess = r.clock.Now()
	st.TotalFetches++
	st.TotalIngested += int64(ingested)
	st.TotalSkipped += int64(skipped)
	st.ConsecutiveFailures = 0
	st.LastError = ""
}

// RecordFailure notes a failed poll cycle for source.
func (r *Recorder) RecordFailure(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.get(source)
	st.LastFailure = r.clock.Now()
	st.TotalFetches++
	st.ConsecutiveFailures++
	if err != nil {
		st.LastError = err.Error()
	}
}

// Snapshot returns a copy of every source's counters.
func (r *Recorder) Snapshot() map[string]SourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]SourceStats, len(r.sources))
	for name, st := range r.sources {
		out[name] = *st
	}
	return out
}
