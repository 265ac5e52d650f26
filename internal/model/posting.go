package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Posting is the unified representation of a job/internship listing from any
// external API. Postings are immutable once admitted to the store.
type Posting struct {
	ID         string    // stable identity, "<source>:<native id or fingerprint>"
	Source     string    // originating source name
	Company    string    // company name (original casing preserved)
	Title      string    // job title
	Location   string    // location string
	URL        string    // canonical link to the posting
	PostedAt   time.Time // source-reported; falls back to IngestedAt
	ApproxDate bool      // true when PostedAt was absent and set to ingestion time
	IngestedAt time.Time // set once on admission, never changes
}

// Fingerprint derives a stable content identity for sources that do not
// provide a native posting ID. Fields are trimmed and case-folded so that
// cosmetic differences between polls do not produce new identities. The
// posting date is normalized to the day.
func Fingerprint(company, title, location string, postedAt time.Time) string {
	date := ""
	if !postedAt.IsZero() {
		date = postedAt.UTC().Format("2006-01-02")
	}
	key := strings.Join([]string{
		foldField(company),
		foldField(title),
		foldField(location),
		date,
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// foldField normalizes a field for identity comparison: trim, lowercase,
// collapse interior whitespace.
func foldField(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// PostingID builds the store identity from a source name and a source-native
// posting identifier (or a Fingerprint when the source has none).
func PostingID(source, native string) string {
	return fmt.Sprintf("%s:%s", source, native)
}

// SourceAdapter normalizes one external API's raw response into Postings.
// Adapters are pure: no network, no clock. A single malformed record is
// skipped and counted; an unrecognized response shape fails with AdapterError.
type SourceAdapter interface {
	Source() string
	Normalize(raw []byte) (postings []Posting, skipped int, err error)
}

// Response is what a Transport hands back for a completed HTTP exchange.
type Response struct {
	Status     int
	Body       []byte
	RetryAfter time.Duration // from Retry-After header, zero if absent
}

// Transport performs an HTTP GET with headers and query parameters. It fails
// with TransportError only on network-level failure; non-200 statuses are
// returned in Response for the caller to judge.
type Transport interface {
	Fetch(ctx context.Context, rawURL string, headers map[string]string, query url.Values) (*Response, error)
}

// Publisher is the notification sink for newly admitted postings.
type Publisher interface {
	Publish(postings []Posting) error
}

// Store admits candidate postings, discarding those already seen, and
// returns the newly admitted ones with their ingestion stamp.
type Store interface {
	Admit(ctx context.Context, postings []Posting) ([]Posting, error)
}
