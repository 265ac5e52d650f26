// Package query answers structured search/filter requests against the
// posting store. Queries are read-only and side-effect-free: they operate on
// a point-in-time snapshot, so concurrent admissions neither appear nor
// disappear mid-result.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"internwatch/internal/model"
)

const (
	// DefaultLimit applies when a filter does not set one.
	DefaultLimit = 25
	// MaxLimit is the hard cap on results per query.
	MaxLimit = 100
)

// Filter narrows a query. Absent fields impose no constraint; set fields
// combine with logical AND.
type Filter struct {
	Keywords []string  // all required, matched case-insensitively as substrings
	Limit    int       // 0 means DefaultLimit; clamped to MaxLimit
	Since    time.Time // only postings ingested at or after this instant
	Source   string    // restrict to one originating source
}

// ValidationError reports a bad filter. It is a user-facing message, never a
// crash.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// ParseKeywords splits raw user input into keywords. Double-quoted runs form
// a single phrase keyword; everything else splits on whitespace. An
// unbalanced quote is a validation error.
func ParseKeywords(raw string) ([]string, error) {
	var keywords []string
	var current strings.Builder
	inQuote := false

	flush := func() {
		if current.Len() > 0 {
			keywords = append(keywords, current.String())
			current.Reset()
		}
	}

	for _, r := range raw {
		switch {
		case r == '"':
			if inQuote {
				flush()
			}
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if inQuote {
		return nil, &ValidationError{Reason: "unbalanced quote in keywords"}
	}
	flush()

	return keywords, nil
}

// Snapshotter supplies the point-in-time posting set a query runs against.
// The store implements it; tests feed slices.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]model.Posting, error)
}

// Engine evaluates filters against store snapshots. It never mutates the
// store.
type Engine struct {
	src Snapshotter
}

func NewEngine(src Snapshotter) *Engine {
	return &Engine{src: src}
}

// Query returns the postings matching f, most recently ingested first with
// ties broken by id. An empty result is an empty slice, not an error.
func (e *Engine) Query(ctx context.Context, f Filter) ([]model.Posting, error) {
	if f.Limit < 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("limit must not be negative, got %d", f.Limit)}
	}
	limit := f.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	keywords := make([]string, 0, len(f.Keywords))
	for _, kw := range f.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	snapshot, err := e.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}

	// Re-sort locally: determinism must not depend on the snapshot source.
	sort.SliceStable(snapshot, func(i, j int) bool {
		if !snapshot[i].IngestedAt.Equal(snapshot[j].IngestedAt) {
			return snapshot[i].IngestedAt.After(snapshot[j].IngestedAt)
		}
		return snapshot[i].ID < snapshot[j].ID
	})

	results := make([]model.Posting, 0, limit)
	for _, p := range snapshot {
		if f.Source != "" && p.Source != f.Source {
			continue
		}
		if !f.Since.IsZero() && p.IngestedAt.Before(f.Since) {
			continue
		}
		if !matchesKeywords(p, keywords) {
			continue
		}
		results = append(results, p)
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

// matchesKeywords reports whether every keyword appears as a substring of
// the posting's combined company, title, and location, case-insensitively.
func matchesKeywords(p model.Posting, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(p.Company + " " + p.Title + " " + p.Location)
	for _, kw := range keywords {
		if !strings.Contains(haystack, kw) {
			return false
		}
	}
	return true
}
