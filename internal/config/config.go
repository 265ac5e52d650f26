package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the internwatch core. It is loaded
// once at startup and immutable thereafter; any error here is fatal before
// polling begins.
type Config struct {
	Sources        []SourceConfig
	Retention      RetentionConfig
	RateLimit      RateLimitConfig
	Backoff        BackoffConfig
	RequestTimeout time.Duration
	Notification   NotificationConfig
	StorePath      string // optional SQLite path; empty keeps postings in memory
}

// SourceConfig describes a single external API to poll. Immutable after load.
type SourceConfig struct {
	Name    string            // unique source name, used as the posting Source
	Adapter string            // adapter tag selecting the normalization variant
	URL     string            // endpoint URL
	Headers map[string]string // auth headers (values env-expanded)
	Query   map[string]string // fixed query parameters
	Enabled bool

	Interval  time.Duration // tick interval for scheduled polling
	MinDelay  time.Duration // minimum gap between requests to this source
	PerWindow int           // max requests per Window, 0 disables the cap
	Window    time.Duration
}

// RetentionConfig bounds the posting store.
type RetentionConfig struct {
	MaxPostings int // oldest postings by ingestion time are evicted beyond this
}

// RateLimitConfig holds the defaults applied to sources that do not override them.
type RateLimitConfig struct {
	MinDelay  time.Duration
	PerWindow int
	Window    time.Duration
}

// BackoffConfig controls the poller's failure backoff.
type BackoffConfig struct {
	Base       time.Duration // first backoff delay, doubled per consecutive failure
	Max        time.Duration // cap on the backoff delay
	MaxRetries int           // consecutive failures before giving up until the next tick
}

// NotificationConfig selects the notification sink.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "discord"
	WebhookURL string `yaml:"webhook_url"` // required if type is "discord"
}

// rawConfig is used for YAML unmarshaling (snake_case fields, durations as strings).
type rawConfig struct {
	Sources        []rawSourceConfig  `yaml:"sources"`
	Retention      rawRetentionConfig `yaml:"retention"`
	RateLimit      rawRateLimitConfig `yaml:"rate_limit"`
	Backoff        rawBackoffConfig   `yaml:"backoff"`
	RequestTimeout string             `yaml:"request_timeout"`
	Notification   NotificationConfig `yaml:"notification"`
	StorePath      string             `yaml:"store_path"`
}

type rawSourceConfig struct {
	Name      string            `yaml:"name"`
	Adapter   string            `yaml:"adapter"`
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
	Query     map[string]string `yaml:"query"`
	Enabled   bool              `yaml:"enabled"`
	Interval  string            `yaml:"interval"`
	MinDelay  string            `yaml:"min_delay"`
	PerWindow int               `yaml:"per_window"`
	Window    string            `yaml:"window"`
}

type rawRetentionConfig struct {
	MaxPostings int `yaml:"max_postings"`
}

type rawRateLimitConfig struct {
	MinDelay  string `yaml:"min_delay"`
	PerWindow int    `yaml:"per_window"`
	Window    string `yaml:"window"`
}

type rawBackoffConfig struct {
	Base       string `yaml:"base"`
	Max        string `yaml:"max"`
	MaxRetries int    `yaml:"max_retries"`
}

// Defaults mirror the original deployment: 30-minute polling, 30 requests
// per minute per source.
const (
	defaultInterval       = 30 * time.Minute
	defaultMinDelay       = 2 * time.Second
	defaultPerWindow      = 30
	defaultWindow         = time.Minute
	defaultMaxPostings    = 5000
	defaultRequestTimeout = 30 * time.Second
	defaultBackoffBase    = 5 * time.Second
	defaultBackoffMax     = 5 * time.Minute
	defaultMaxRetries     = 3
)

// Load reads and parses the YAML config file at path, expands environment
// variables, applies defaults, validates, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML bytes. Split out of Load for tests.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	timeout, err := durationOr(raw.RequestTimeout, defaultRequestTimeout, "request_timeout")
	if err != nil {
		return nil, err
	}

	defMinDelay, err := durationOr(raw.RateLimit.MinDelay, defaultMinDelay, "rate_limit.min_delay")
	if err != nil {
		return nil, err
	}
	defWindow, err := durationOr(raw.RateLimit.Window, defaultWindow, "rate_limit.window")
	if err != nil {
		return nil, err
	}
	defPerWindow := raw.RateLimit.PerWindow
	if defPerWindow == 0 {
		defPerWindow = defaultPerWindow
	}

	backoffBase, err := durationOr(raw.Backoff.Base, defaultBackoffBase, "backoff.base")
	if err != nil {
		return nil, err
	}
	backoffMax, err := durationOr(raw.Backoff.Max, defaultBackoffMax, "backoff.max")
	if err != nil {
		return nil, err
	}
	maxRetries := raw.Backoff.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	maxPostings := raw.Retention.MaxPostings
	if maxPostings == 0 {
		maxPostings = defaultMaxPostings
	}

	cfg := &Config{
		Retention:      RetentionConfig{MaxPostings: maxPostings},
		RateLimit:      RateLimitConfig{MinDelay: defMinDelay, PerWindow: defPerWindow, Window: defWindow},
		Backoff:        BackoffConfig{Base: backoffBase, Max: backoffMax, MaxRetries: maxRetries},
		RequestTimeout: timeout,
		Notification:   raw.Notification,
		StorePath:      raw.StorePath,
	}

	for _, rs := range raw.Sources {
		interval, err := durationOr(rs.Interval, defaultInterval, fmt.Sprintf("sources[%s].interval", rs.Name))
		if err != nil {
			return nil, err
		}
		minDelay, err := durationOr(rs.MinDelay, cfg.RateLimit.MinDelay, fmt.Sprintf("sources[%s].min_delay", rs.Name))
		if err != nil {
			return nil, err
		}
		window, err := durationOr(rs.Window, cfg.RateLimit.Window, fmt.Sprintf("sources[%s].window", rs.Name))
		if err != nil {
			return nil, err
		}
		perWindow := rs.PerWindow
		if perWindow == 0 {
			perWindow = cfg.RateLimit.PerWindow
		}

		cfg.Sources = append(cfg.Sources, SourceConfig{
			Name:      rs.Name,
			Adapter:   rs.Adapter,
			URL:       rs.URL,
			Headers:   rs.Headers,
			Query:     rs.Query,
			Enabled:   rs.Enabled,
			Interval:  interval,
			MinDelay:  minDelay,
			PerWindow: perWindow,
			Window:    window,
		})
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func durationOr(raw string, def time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	enabled := 0
	names := make(map[string]bool)
	for _, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("every source needs a name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		names[s.Name] = true
		if s.Adapter == "" {
			return fmt.Errorf("source %s: adapter is required", s.Name)
		}
		if s.URL == "" {
			return fmt.Errorf("source %s: url is required", s.Name)
		}
		if s.Interval <= 0 {
			return fmt.Errorf("source %s: interval must be positive, got %v", s.Name, s.Interval)
		}
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	if cfg.Retention.MaxPostings <= 0 {
		return fmt.Errorf("retention.max_postings must be positive, got %d", cfg.Retention.MaxPostings)
	}

	if cfg.Notification.Type == "discord" && cfg.Notification.WebhookURL == "" {
		return fmt.Errorf("notification.webhook_url is required when type is \"discord\"")
	}

	return nil
}
