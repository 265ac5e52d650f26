package adapter

import (
	"encoding/json"

	"internwatch/internal/model"
)

// linkedInSearchResponse is the envelope of the LinkedIn search-jobs API.
// Unlike the feed endpoints this one wraps its listings in a "data" field
// and nests the company name.
type linkedInSearchResponse struct {
	Data []json.RawMessage `json:"data"`
}

type linkedInSearchRecord struct {
	ID       json.Number           `json:"id"`
	Title    string                `json:"title"`
	Company  linkedInSearchCompany `json:"company"`
	Location string                `json:"location"`
	URL      string                `json:"url"`
	PostAt   string                `json:"postAt"`
}

type linkedInSearchCompany struct {
	Name string `json:"name"`
}

// LinkedInSearchAdapter normalizes the RapidAPI LinkedIn search-jobs endpoint.
type LinkedInSearchAdapter struct {
	source string
}

func (a *LinkedInSearchAdapter) Source() string { return a.source }

func (a *LinkedInSearchAdapter) Normalize(raw []byte) ([]model.Posting, int, error) {
	var resp linkedInSearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, 0, &model.AdapterError{Source: a.source, Reason: "response is not a JSON object with a data array"}
	}
	if resp.Data == nil {
		return nil, 0, &model.AdapterError{Source: a.source, Reason: "response has no data array"}
	}

	postings := make([]model.Posting, 0, len(resp.Data))
	skipped := 0
	for _, rec := range resp.Data {
		var r linkedInSearchRecord
		if err := json.Unmarshal(rec, &r); err != nil {
			skipped++
			continue
		}
		title := clean(r.Title)
		company := clean(r.Company.Name)
		if title == "" && company == "" {
			skipped++
			continue
		}

		location := clean(r.Location)
		postedAt := parsePostedAt(r.PostAt)

		native := r.ID.String()
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
