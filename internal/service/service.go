// Package service is the facade the chat-command layer talks to: manual
// fetches, structured queries, and per-source observability.
package service

import (
	"context"
	"errors"
	"fmt"

	"internwatch/internal/model"
	"internwatch/internal/poller"
	"internwatch/internal/query"
	"internwatch/internal/ratelimit"
	"internwatch/internal/stats"
)

// Service exposes the core's operations to collaborators. It shares the
// store and rate limiter with the scheduled pollers.
type Service struct {
	pollers map[string]*poller.SourcePoller
	order   []string // configured source order, for stable all-source fetches
	limiter *ratelimit.SourceLimiter
	engine  *query.Engine
	stats   *stats.Recorder
}

// New builds the facade over the given pollers.
func New(pollers []*poller.SourcePoller, limiter *ratelimit.SourceLimiter, engine *query.Engine, rec *stats.Recorder) *Service {
	s := &Service{
		pollers: make(map[string]*poller.SourcePoller, len(pollers)),
		limiter: limiter,
		engine:  engine,
		stats:   rec,
	}
	for _, p := range pollers {
		s.pollers[p.Source()] = p
		s.order = append(s.order, p.Source())
	}
	return s
}

// Sources returns the configured source names in order.
func (s *Service) Sources() []string {
	return append([]string(nil), s.order...)
}

// TriggerFetch polls the named source immediately, or every source when name
// is empty. The manual path never blocks on the rate limiter: a source whose
// limit would be violated yields a RateLimitError carrying the wait time.
// For an all-source fetch, admitted postings from the sources that did run
// are returned alongside any per-source errors (joined).
func (s *Service) TriggerFetch(ctx context.Context, name string) ([]model.Posting, error) {
	if name != "" {
		p, ok := s.pollers[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", name)
		}
		return s.fetchOne(ctx, p)
	}

	var admitted []model.Posting
	var errs []error
	for _, src := range s.order {
		got, err := s.fetchOne(ctx, s.pollers[src])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		admitted = append(admitted, got...)
	}
	return admitted, errors.Join(errs...)
}

func (s *Service) fetchOne(ctx context.Context, p *poller.SourcePoller) ([]model.Posting, error) {
	if err := s.limiter.TryAcquire(p.Source()); err != nil {
		return nil, err
	}
	return p.Poll(ctx)
}

// Query runs a read-only search against the store. See query.Filter for
// semantics.
func (s *Service) Query(ctx context.Context, f query.Filter) ([]model.Posting, error) {
	return s.engine.Query(ctx, f)
}

// Stats reports per-source poll counters.
func (s *Service) Stats() map[string]stats.SourceStats {
	return s.stats.Snapshot()
}
