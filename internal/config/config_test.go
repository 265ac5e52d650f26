package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
sources:
  - name: internships
    adapter: internships
    url: https://internships-api.example.com/active-ats-7d
    headers:
      x-rapidapi-key: ${RAPIDAPI_KEY}
      x-rapidapi-host: internships-api.example.com
    enabled: true
    interval: 15m
    min_delay: 3s
  - name: linkedin
    adapter: linkedin
    url: https://linkedin-api.example.com/active-jb-1h
    enabled: false

retention:
  max_postings: 200

rate_limit:
  min_delay: 2s
  per_window: 30
  window: 1m

backoff:
  base: 10s
  max: 2m
  max_retries: 5

request_timeout: 20s

notification:
  type: log
`

func TestParse_Valid(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "secret-key-123")

	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}

	s := cfg.Sources[0]
	if s.Name != "internships" {
		t.Errorf("Name = %s, want internships", s.Name)
	}
	if s.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", s.Interval)
	}
	if s.MinDelay != 3*time.Second {
		t.Errorf("MinDelay = %v, want 3s", s.MinDelay)
	}
	if got := s.Headers["x-rapidapi-key"]; got != "secret-key-123" {
		t.Errorf("env expansion failed: x-rapidapi-key = %q", got)
	}
	if !s.Enabled {
		t.Error("expected first source enabled")
	}
	if cfg.Sources[1].Enabled {
		t.Error("expected second source disabled")
	}

	if cfg.Retention.MaxPostings != 200 {
		t.Errorf("MaxPostings = %d, want 200", cfg.Retention.MaxPostings)
	}
	if cfg.Backoff.Base != 10*time.Second || cfg.Backoff.Max != 2*time.Minute || cfg.Backoff.MaxRetries != 5 {
		t.Errorf("unexpected backoff config: %+v", cfg.Backoff)
	}
	if cfg.RequestTimeout != 20*time.Second {
		t.Errorf("RequestTimeout = %v, want 20s", cfg.RequestTimeout)
	}
}

func TestParse_Defaults(t *testing.T) {
	minimal := `
sources:
  - name: internships
    adapter: internships
    url: https://internships-api.example.com/active-ats-7d
    enabled: true
`
	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := cfg.Sources[0]
	if s.Interval != 30*time.Minute {
		t.Errorf("default Interval = %v, want 30m", s.Interval)
	}
	if s.MinDelay != 2*time.Second {
		t.Errorf("default MinDelay = %v, want 2s", s.MinDelay)
	}
	if s.PerWindow != 30 || s.Window != time.Minute {
		t.Errorf("default window cap = %d per %v, want 30 per 1m", s.PerWindow, s.Window)
	}
	if cfg.Retention.MaxPostings != 5000 {
		t.Errorf("default MaxPostings = %d, want 5000", cfg.Retention.MaxPostings)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("default RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.Backoff.MaxRetries != 3 {
		t.Errorf("default MaxRetries = %d, want 3", cfg.Backoff.MaxRetries)
	}
}

func TestParse_SourceOverridesGlobalRateLimit(t *testing.T) {
	yaml := `
sources:
  - name: a
    adapter: internships
    url: https://a.example.com
    enabled: true
    per_window: 10
    window: 30s
  - name: b
    adapter: linkedin
    url: https://b.example.com
    enabled: true

rate_limit:
  per_window: 60
  window: 2m
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Sources[0].PerWindow != 10 || cfg.Sources[0].Window != 30*time.Second {
		t.Errorf("source a did not keep its override: %d per %v", cfg.Sources[0].PerWindow, cfg.Sources[0].Window)
	}
	if cfg.Sources[1].PerWindow != 60 || cfg.Sources[1].Window != 2*time.Minute {
		t.Errorf("source b did not inherit global limits: %d per %v", cfg.Sources[1].PerWindow, cfg.Sources[1].Window)
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no sources",
			yaml: `retention: {max_postings: 10}`,
			want: "at least one source",
		},
		{
			name: "duplicate names",
			yaml: `
sources:
  - {name: x, adapter: internships, url: "https://a", enabled: true}
  - {name: x, adapter: linkedin, url: "https://b", enabled: true}
`,
			want: "duplicate source name",
		},
		{
			name: "missing adapter",
			yaml: `
sources:
  - {name: x, url: "https://a", enabled: true}
`,
			want: "adapter is required",
		},
		{
			name: "missing url",
			yaml: `
sources:
  - {name: x, adapter: internships, enabled: true}
`,
			want: "url is required",
		},
		{
			name: "all disabled",
			yaml: `
sources:
  - {name: x, adapter: internships, url: "https://a", enabled: false}
`,
			want: "at least one source must be enabled",
		},
		{
			name: "negative retention",
			yaml: `
sources:
  - {name: x, adapter: internships, url: "https://a", enabled: true}
retention:
  max_postings: -5
`,
			want: "max_postings must be positive",
		},
		{
			name: "discord without webhook",
			yaml: `
sources:
  - {name: x, adapter: internships, url: "https://a", enabled: true}
notification:
  type: discord
`,
			want: "webhook_url is required",
		},
		{
			name: "bad duration",
			yaml: `
sources:
  - {name: x, adapter: internships, url: "https://a", enabled: true, interval: soon}
`,
			want: "interval",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
