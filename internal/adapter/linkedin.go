package adapter

import (
	"encoding/json"

	"internwatch/internal/model"
)

// linkedInRecord is a single listing in the LinkedIn active-jobs feed.
// This endpoint provides no stable native ID, so identity falls back to a
// content fingerprint.
type linkedInRecord struct {
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	ApplyURL    string `json:"apply_url"`
	PostedDate  string `json:"posted_date"`
}

// LinkedInAdapter normalizes the RapidAPI LinkedIn active-jobs feed.
type LinkedInAdapter struct {
	source string
}

func (a *LinkedInAdapter) Source() string { return a.source }

func (a *LinkedInAdapter) Normalize(raw []byte) ([]model.Posting, int, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, 0, &model.AdapterError{Source: a.source, Reason: "response is not a JSON array of listings"}
	}

	postings := make([]model.Posting, 0, len(records))
	skipped := 0
	for _, rec := range records {
		var r linkedInRecord
		if err := json.Unmarshal(rec, &r); err != nil {
			skipped++
			continue
		}
		title := clean(r.Title)
		company := clean(r.CompanyName)
		if title == "" && company == "" {
			skipped++
			continue
		}

		location := clean(r.Location)
		postedAt := parsePostedAt(r.PostedDate)

		postings = append(postings, model.Posting{
			ID:       model.PostingID(a.source, model.Fingerprint(company, title, location, postedAt)),
			Source:   a.source,
			Company:  company,
			Title:    title,
			Location: location,
			URL:      r.ApplyURL,
			PostedAt: postedAt,
		})
	}

	return postings, skipped, nil
}
