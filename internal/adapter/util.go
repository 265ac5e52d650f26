package adapter

import (
	"strings"
	"time"
)

// postedAtLayouts covers the date formats observed across the RapidAPI
// endpoints: RFC 3339, space-separated datetimes, and bare dates.
var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePostedAt parses a source-reported posting date. Returns the zero time
// when absent or unparseable; admission then falls back to ingestion time
// with the approximate-date flag set.
func parsePostedAt(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// clean trims a display field without changing its case. Case folding happens
// only at comparison time (fingerprints, keyword matching).
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
