// Package scheduler runs one independent periodic polling task per source.
// Sources never share a tick: a slow or backing-off source cannot delay the
// others.
package scheduler

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"internwatch/internal/poller"
)

// Scheduler owns the polling goroutines' lifecycle.
type Scheduler struct {
	pollers []*poller.SourcePoller
	logger  *slog.Logger
}

// New creates a scheduler for the given pollers.
func New(pollers []*poller.SourcePoller, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pollers: pollers,
		logger:  logger,
	}
}

// Run starts one polling loop per source and blocks until ctx is cancelled
// and every in-flight cycle has finished (each bounded by its per-request
// timeout). Returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "sources", len(s.pollers))

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range s.pollers {
		g.Go(func() error {
			return p.Run(ctx)
		})
	}

	err := g.Wait()
	s.logger.Info("scheduler stopped")
	return err
}
