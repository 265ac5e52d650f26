package adapter

import (
	"errors"
	"testing"

	"internwatch/internal/model"
)

func TestLinkedInSearchNormalize_Envelope(t *testing.T) {
	payload := `{
		"data": [
			{
				"id": 4021337,
				"title": "Backend Intern",
				"company": {"name": "Initech"},
				"location": "Austin, TX",
				"url": "https://linkedin.test/jobs/4021337",
				"postAt": "2026-08-18"
			},
			{
				"id": "4021338",
				"title": "ML Intern",
				"company": {"name": "Hooli"},
				"location": "Remote",
				"url": "https://linkedin.test/jobs/4021338",
				"postAt": "2026-08-17"
			}
		]
	}`

	a := &LinkedInSearchAdapter{source: "linkedin-search"}
	postings, skipped, err := a.Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	// Numeric and string IDs both resolve to the same textual form.
	if postings[0].ID != "linkedin-search:4021337" {
		t.Errorf("ID = %s, want linkedin-search:4021337", postings[0].ID)
	}
	if postings[1].ID != "linkedin-search:4021338" {
		t.Errorf("ID = %s, want linkedin-search:4021338", postings[1].ID)
	}
	if postings[0].Company != "Initech" {
		t.Errorf("Company = %s, want Initech", postings[0].Company)
	}
}

func TestLinkedInSearchNormalize_MissingDataField(t *testing.T) {
	a := &LinkedInSearchAdapter{source: "linkedin-search"}
	_, _, err := a.Normalize([]byte(`{"message": "rate limit exceeded"}`))
	if err == nil {
		t.Fatal("expected error for envelope with no data array")
	}

	var aerr *model.AdapterError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AdapterError, got %T", err)
	}
}

func TestLinkedInSearchNormalize_SkipsEmptyRecords(t *testing.T) {
	payload := `{"data": [
		{"id": 1, "title": "SWE Intern", "company": {"name": "Acme"}},
		{"id": 2, "location": "Remote"}
	]}`

	a := &LinkedInSearchAdapter{source: "linkedin-search"}
	postings, skipped, err := a.Normalize([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}
