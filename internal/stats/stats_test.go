package stats

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
func (c fixedClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func TestRecorder_SuccessAndFailure(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	r := NewRecorder(fixedClock{now: now})

	r.RecordFailure("internships", errors.New("connection refused"))
	r.RecordFailure("internships", errors.New("timeout"))
	r.RecordSuccess("internships", 4, 1)

	st := r.Snapshot()["internships"]
	if st.TotalFetches != 3 {
		t.Errorf("TotalFetches = %d, want 3", st.TotalFetches)
	}
	if st.TotalIngested != 4 || st.TotalSkipped != 1 {
		t.Errorf("ingested/skipped = %d/%d, want 4/1", st.TotalIngested, st.TotalSkipped)
	}
	if st.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0 after success", st.ConsecutiveFailures)
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want cleared", st.LastError)
	}
	if !st.LastSuccess.Equal(now) || !st.LastFailure.Equal(now) {
		t.Errorf("timestamps not recorded: %+v", st)
	}
}

func TestRecorder_ConsecutiveFailures(t *testing.T) {
	r := NewRecorder(fixedClock{now: time.Now()})
	for i := 0; i < 3; i++ {
		r.RecordFailure("linkedin", errors.New("boom"))
	}

	st := r.Snapshot()["linkedin"]
	if st.ConsecutiveFailures != 3 {
		t.Errorf("ConsecutiveFailures = %d, want 3", st.ConsecutiveFailures)
	}
	if st.LastError != "boom" {
		t.Errorf("LastError = %q, want boom", st.LastError)
	}
}

func TestRecorder_ConcurrentUse(t *testing.T) {
	r := NewRecorder(fixedClock{now: time.Now()})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordSuccess("internships", 1, 0)
			}
		}()
	}
	wg.Wait()

	if got := r.Snapshot()["internships"].TotalFetches; got != 1000 {
		t.Errorf("TotalFetches = %d, want 1000", got)
	}
}
