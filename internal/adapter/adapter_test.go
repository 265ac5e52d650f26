package adapter

import (
	"testing"
	"time"
)

func TestForTag(t *testing.T) {
	for _, tag := range []string{TagInternships, TagLinkedIn, TagLinkedInSearch} {
		a, err := ForTag(tag, "src")
		if err != nil {
			t.Fatalf("ForTag(%s): %v", tag, err)
		}
		if a.Source() != "src" {
			t.Errorf("ForTag(%s).Source() = %s, want src", tag, a.Source())
		}
	}

	if _, err := ForTag("greenhouse", "src"); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestParsePostedAt(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-08-20T09:00:00Z", time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)},
		{"2026-08-20T09:00:00", time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)},
		{"2026-08-20 09:00:00", time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)},
		{"2026-08-20", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{"  2026-08-20  ", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"three days ago", time.Time{}},
	}
	for _, c := range cases {
		got := parsePostedAt(c.in)
		if !got.Equal(c.want) {
			t.Errorf("parsePostedAt(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClean(t *testing.T) {
	if got := clean("  Acme   Corp \n"); got != "Acme Corp" {
		t.Errorf("clean = %q, want %q", got, "Acme Corp")
	}
	if got := clean(""); got != "" {
		t.Errorf("clean(\"\") = %q, want empty", got)
	}
}
