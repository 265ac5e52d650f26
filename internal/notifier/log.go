package notifier

import (
	"log/slog"

	"internwatch/internal/model"
)

// Ensure LogNotifier implements model.Publisher.
var _ model.Publisher = (*LogNotifier)(nil)

// LogNotifier writes newly admitted postings to the given logger as
// structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a publisher that logs each posting via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish logs each posting with company, title, location, URL, and source.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Publish(postings []model.Posting) error {
	for _, p := range postings {
		args := []any{"source", p.Source, "company", p.Company, "title", p.Title, "location", p.Location, "url", p.URL}
		if !p.ApproxDate {
			args = append(args, "posted_at", p.PostedAt)
		}
		n.logger.Info("new posting", args...)
	}
	return nil
}
