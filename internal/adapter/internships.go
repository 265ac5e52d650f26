package adapter

import (
	"encoding/json"

	"internwatch/internal/model"
)

// internshipsRecord is a single listing in the internships API response.
// The endpoint returns a flat JSON array.
type internshipsRecord struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Organization string   `json:"organization"`
	Locations    []string `json:"locations_derived"`
	URL          string   `json:"url"`
	DatePosted   string   `json:"date_posted"`
}

// InternshipsAdapter normalizes the RapidAPI internships feed. Records carry
// a stable native ID.
type InternshipsAdapter struct {
	source string
}

func (a *InternshipsAdapter) Source() string { return a.source }

// Normalize converts the raw response into Postings. Malformed records and
// records missing both a title and a company are skipped and counted; a
// non-array body fails the whole batch.
func (a *InternshipsAdapter) Normalize(raw []byte) ([]model.Posting, int, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, 0, &model.AdapterError{Source: a.source, Reason: "response is not a JSON array of listings"}
	}

	postings := make([]model.Posting, 0, len(records))
	skipped := 0
	for _, rec := range records {
		var r internshipsRecord
		if err := json.Unmarshal(rec, &r); err != nil {
			skipped++
			continue
		}
		title := clean(r.Title)
		company := clean(r.Organization)
		if title == "" && company == "" {
			skipped++
			continue
		}

		location := ""
		if len(r.Locations) > 0 {
			location = clean(r.Locations[0])
		}
		postedAt := parsePostedAt(r.DatePosted)

		native := r.ID
		if native == "" {
			native = model.Fingerprint(company, title, location, postedAt)
		}

		postings = append(postings, model.Posting{
			ID:       model.PostingID(a.source, native),
			Source:   a.source,
			Company:  company,
			Title:    title,
			Location: location,
			URL:      r.URL,
			PostedAt: postedAt,
		})
	}

	return postings, skipped, nil
}
