// Package adapter normalizes the differing response shapes of the external
// job-search APIs into the unified Posting model. Each adapter is a pure
// function of the raw response body: network and timing live in the poller.
package adapter

import (
	"fmt"

	"internwatch/internal/model"
)

// Adapter tags understood by ForTag. Each tag selects one normalization
// variant; a source config binds a tag to a concrete endpoint.
const (
	TagInternships    = "internships"
	TagLinkedIn       = "linkedin"
	TagLinkedInSearch = "linkedin-search"
)

// ForTag returns the adapter for the given tag, producing postings attributed
// to source. Unknown tags fail at wiring time, before any polling begins.
func ForTag(tag, source string) (model.SourceAdapter, error) {
	switch tag {
	case TagInternships:
		return &InternshipsAdapter{source: source}, nil
	case TagLinkedIn:
		return &LinkedInAdapter{source: source}, nil
	case TagLinkedInSearch:
		return &LinkedInSearchAdapter{source: source}, nil
	default:
		return nil, fmt.Errorf("unknown adapter tag %q for source %s", tag, source)
	}
}
