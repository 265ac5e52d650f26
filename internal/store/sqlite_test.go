package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"internwatch/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func mustOpen(t *testing.T, maxPostings int, clk *fakeClock) *Store {
	t.Helper()
	s, err := Open(MemoryDSN, maxPostings, clk)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func posting(id string) model.Posting {
	return model.Posting{
		ID:       "internships:" + id,
		Source:   "internships",
		Company:  "Acme",
		Title:    "SWE Intern " + id,
		Location: "Remote",
		URL:      "https://jobs.example.com/" + id,
		PostedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestAdmit_DeduplicatesByID(t *testing.T) {
	clk := newFakeClock()
	s := mustOpen(t, 100, clk)
	ctx := context.Background()

	batch := []model.Posting{posting("1"), posting("2")}

	admitted, err := s.Admit(ctx, batch)
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	if len(admitted) != 2 {
		t.Fatalf("first admit returned %d postings, want 2", len(admitted))
	}

	// Replaying the same batch must admit nothing and leave the store unchanged.
	clk.advance(time.Minute)
	again, err := s.Admit(ctx, batch)
	if err != nil {
		t.Fatalf("second admit: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second admit returned %d postings, want 0", len(again))
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestAdmit_PartialOverlap(t *testing.T) {
	clk := newFakeClock()
	s := mustOpen(t, 100, clk)
	ctx := context.Background()

	if _, err := s.Admit(ctx, []model.Posting{posting("1")}); err != nil {
		t.Fatalf("seed admit: %v", err)
	}

	admitted, err := s.Admit(ctx, []model.Posting{posting("1"), posting("2")})
	if err != nil {
		t.Fatalf("overlap admit: %v", err)
	}
	if len(admitted) != 1 || admitted[0].ID != "internships:2" {
		t.Fatalf("expected only the new posting admitted, got %v", admitted)
	}
}

func TestAdmit_StampsIngestionTime(t *testing.T) {
	clk := newFakeClock()
	s := mustOpen(t, 100, clk)
	ctx := context.Background()

	admitted, err := s.Admit(ctx, []model.Posting{posting("1"), posting("2")})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	for _, p := range admitted {
		if !p.IngestedAt.Equal(clk.Now()) {
			t.Errorf("posting %s IngestedAt = %v, want %v", p.ID, p.IngestedAt, clk.Now())
		}
	}
}

func TestAdmit_MissingPostedAtFallsBackToIngestion(t *testing.T) {
	clk := newFakeClock()
	s := mustOpen(t, 100, clk)
	ctx := context.Background()

	p := posting("1")
	p.PostedAt = time.Time{}

	admitted, err := s.Admit(ctx, []model.Posting{p})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	got := admitted[0]
	if !got.PostedAt.Equal(clk.Now()) {
		t.Errorf("PostedAt = %v, want ingestion time %v", got.PostedAt, clk.Now())
	}
	if !got.ApproxDate {
		t.Error("expected ApproxDate flag when the source reported no date")
	}

	stored, ok, err := s.Get(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !stored.ApproxDate {
		t.Error("ApproxDate flag not persisted")
	}
}

func TestAdmit_EvictsOldestBeyondRetention(t *testing.T) {
	clk := newFakeClock()
	s := mustOpen(t, 3, clk)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := s.Admit(ctx, []model.Posting{posting(fmt.Sprintf("%d", i))}); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		clk.advance(time.Minute)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want retention cap 3", count)
	}

	// The two earliest ingestions are gone; the three latest remain.
	for _, id := range []string{"internships:1", "internships:2"} {
		if _, ok, _ := s.Get(ctx, id); ok {
			t.Errorf("expected %s evicted", id)
		}
	}
	for _, id := range []string{"internships:3", "internships:4", "internships:5"} {
		if _, ok, _ := s.Get(ctx, id); !ok {
			t.Errorf("expected %s retained", id)
		}
	}
}

func TestSnapshot_Ordering(t *testing.T) {
	clk := newFakeClock()
	s := mustOpen(t, 100, clk)
	ctx := context.Background()

	// b and c share an ingestion stamp; a is older.
	if _, err := s.Admit(ctx, []model.Posting{posting("a")}); err != nil {
		t.Fatalf("admit a: %v", err)
	}
	clk.advance(time.Hour)
	if _, err := s.Admit(ctx, []model.Posting{posting("c"), posting("b")}); err != nil {
		t.Fatalf("admit b,c: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	want := []string{"internships:b", "internships:c", "internships:a"}
	if len(snap) != len(want) {
		t.Fatalf("snapshot has %d postings, want %d", len(snap), len(want))
	}
	for i, id := range want {
		if snap[i].ID != id {
			t.Errorf("snapshot[%d] = %s, want %s", i, snap[i].ID, id)
		}
	}
}

func TestGet_Missing(t *testing.T) {
	s := mustOpen(t, 100, newFakeClock())
	_, ok, err := s.Get(context.Background(), "internships:nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected missing posting")
	}
}

func TestOpen_DefaultDSN(t *testing.T) {
	s, err := Open("", 10, newFakeClock())
	if err != nil {
		t.Fatalf("open with empty dsn: %v", err)
	}
	defer s.Close()

	if _, err := s.Admit(context.Background(), []model.Posting{posting("1")}); err != nil {
		t.Errorf("admit on default store: %v", err)
	}
}
