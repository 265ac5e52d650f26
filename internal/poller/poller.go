// Package poller drives the per-source poll pipeline: permit, fetch,
// normalize, dedup, publish. Each source runs its own loop so one source's
// failures or backoff never delay another's cycles.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"internwatch/internal/clock"
	"internwatch/internal/config"
	"internwatch/internal/model"
	"internwatch/internal/stats"
)

// State labels where a source's pipeline currently is.
type State string

const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateNormalizing   State = "normalizing"
	StateDeduplicating State = "deduplicating"
	StateBackoff       State = "backoff"
)

// Limiter grants scheduled-poll permits. The manual fetch path goes through
// the limiter's non-blocking side instead.
type Limiter interface {
	Wait(ctx context.Context, source string) error
}

// SourcePoller owns the full poll pipeline for a single source.
type SourcePoller struct {
	cfg       config.SourceConfig
	adapter   model.SourceAdapter
	transport model.Transport
	limiter   Limiter
	store     model.Store
	sink      model.Publisher
	stats     *stats.Recorder
	backoff   config.BackoffConfig
	timeout   time.Duration
	clock     clock.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	pending []model.Posting // admitted postings whose publish gets one retry
}

// New creates a poller wired with all its dependencies.
func New(
	cfg config.SourceConfig,
	adapter model.SourceAdapter,
	transport model.Transport,
	limiter Limiter,
	store model.Store,
	sink model.Publisher,
	rec *stats.Recorder,
	backoff config.BackoffConfig,
	timeout time.Duration,
	clk clock.Clock,
	logger *slog.Logger,
) *SourcePoller {
	return &SourcePoller{
		cfg:       cfg,
		adapter:   adapter,
		transport: transport,
		limiter:   limiter,
		store:     store,
		sink:      sink,
		stats:     rec,
		backoff:   backoff,
		timeout:   timeout,
		clock:     clk,
		logger:    logger,
		state:     StateIdle,
	}
}

// Source returns the configured source name.
func (p *SourcePoller) Source() string { return p.cfg.Name }

// State returns the pipeline's current state.
func (p *SourcePoller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *SourcePoller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run executes the scheduled polling loop for this source: one immediate
// cycle, then ticks on the configured interval. Failures back off
// exponentially (capped); after max consecutive retries the failure is
// logged and the loop returns to the normal tick. Returns nil when ctx is
// cancelled.
func (p *SourcePoller) Run(ctx context.Context) error {
	p.logger.Info("starting poller",
		"source", p.cfg.Name,
		"interval", p.cfg.Interval.String(),
	)

	failures := 0
	for {
		err := p.cycle(ctx)
		if ctx.Err() != nil {
			return nil
		}

		var delay time.Duration
		switch {
		case err == nil:
			failures = 0
			delay = p.cfg.Interval
		default:
			failures++
			if failures >= p.backoff.MaxRetries {
				p.logger.Error("poll failed repeatedly, waiting for next tick",
					"source", p.cfg.Name,
					"failures", failures,
					"error", err,
				)
				failures = 0
				delay = p.cfg.Interval
			} else {
				delay = p.backoffDelay(failures, err)
				p.setState(StateBackoff)
				p.logger.Warn("poll failed, backing off",
					"source", p.cfg.Name,
					"attempt", failures,
					"delay", delay.String(),
					"error", err,
				)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-p.clock.After(delay):
		}
	}
}

// cycle is one scheduled pass: wait for a rate-limit permit, then poll.
func (p *SourcePoller) cycle(ctx context.Context) error {
	if err := p.limiter.Wait(ctx, p.cfg.Name); err != nil {
		return err
	}
	_, err := p.Poll(ctx)
	return err
}

// Poll runs one pipeline pass for this source: fetch, normalize, dedup,
// publish. It does not consult the rate limiter; callers hold a permit.
// Returns the newly admitted postings.
func (p *SourcePoller) Poll(ctx context.Context) ([]model.Posting, error) {
	p.setState(StateFetching)
	defer p.setState(StateIdle)

	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	resp, err := p.transport.Fetch(fctx, p.cfg.URL, p.cfg.Headers, p.queryValues())
	cancel()
	if err != nil {
		p.stats.RecordFailure(p.cfg.Name, err)
		return nil, fmt.Errorf("polling %s: %w", p.cfg.Name, err)
	}
	if resp.Status != http.StatusOK {
		terr := &model.TransportError{StatusCode: resp.Status, RetryAfter: resp.RetryAfter}
		p.stats.RecordFailure(p.cfg.Name, terr)
		return nil, fmt.Errorf("polling %s: %w", p.cfg.Name, terr)
	}

	p.setState(StateNormalizing)
	postings, skipped, err := p.adapter.Normalize(resp.Body)
	if err != nil {
		p.stats.RecordFailure(p.cfg.Name, err)
		return nil, fmt.Errorf("polling %s: %w", p.cfg.Name, err)
	}

	p.setState(StateDeduplicating)
	admitted, err := p.store.Admit(ctx, postings)
	if err != nil {
		p.stats.RecordFailure(p.cfg.Name, err)
		return nil, fmt.Errorf("polling %s: %w", p.cfg.Name, err)
	}

	p.stats.RecordSuccess(p.cfg.Name, len(admitted), skipped)
	p.publish(admitted)

	p.logger.Info("polled source",
		"source", p.cfg.Name,
		"fetched", len(postings),
		"skipped", skipped,
		"new", len(admitted),
	)
	return admitted, nil
}

// publish forwards admitted postings to the notification sink, together with
// any batch whose previous publish failed. A failed batch is retried at most
// once; postings that fail a second time are dropped with a log. Publish
// failures never roll back admission.
func (p *SourcePoller) publish(admitted []model.Posting) {
	p.mu.Lock()
	batch := append(p.pending, admitted...)
	p.pending = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := p.sink.Publish(batch); err != nil {
		dropped := len(batch) - len(admitted)
		p.logger.Error("publish failed",
			"source", p.cfg.Name,
			"postings", len(batch),
			"dropped", dropped,
			"error", err,
		)
		p.mu.Lock()
		p.pending = admitted
		p.mu.Unlock()
	}
}

// backoffDelay computes the delay before the next attempt with ±30% jitter.
// A Retry-After hint from the source takes precedence; the cap still applies.
func (p *SourcePoller) backoffDelay(failures int, err error) time.Duration {
	var terr *model.TransportError
	if errors.As(err, &terr) && terr.RetryAfter > 0 {
		return min(terr.RetryAfter, p.backoff.Max)
	}

	delay := p.backoff.Base
	for i := 1; i < failures; i++ {
		delay *= 2
	}
	if delay > p.backoff.Max {
		delay = p.backoff.Max
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

func (p *SourcePoller) queryValues() url.Values {
	if len(p.cfg.Query) == 0 {
		return nil
	}
	values := make(url.Values, len(p.cfg.Query))
	for k, v := range p.cfg.Query {
		values.Set(k, v)
	}
	return values
}
