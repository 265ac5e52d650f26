package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"internwatch/internal/adapter"
	"internwatch/internal/clock"
	"internwatch/internal/config"
	"internwatch/internal/model"
	"internwatch/internal/notifier"
	"internwatch/internal/poller"
	"internwatch/internal/query"
	"internwatch/internal/ratelimit"
	"internwatch/internal/scheduler"
	"internwatch/internal/service"
	"internwatch/internal/stats"
	"internwatch/internal/store"
	"internwatch/internal/transport"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "internwatch",
	Short: "Internship radar — aggregate postings, dedupe, notify",
	Long:  "Internwatch polls external job-search APIs, deduplicates postings across cycles and sources, and pushes new ones to a chat channel.",
	// Default to `start` so that `internwatch` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: INTERNWATCH_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > INTERNWATCH_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("INTERNWATCH_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupPublisher(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Publisher {
	switch cfg.Notification.Type {
	case "discord":
		logger.Info("using discord notifier")
		return notifier.NewDiscordNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// core bundles everything a command needs to drive the ingestion pipeline.
type core struct {
	service   *service.Service
	scheduler *scheduler.Scheduler
	store     *store.Store
	logger    *slog.Logger
}

func (c *core) Close() error {
	return c.store.Close()
}

// buildCore wires the full pipeline from config: store, limiter, transport,
// adapters, pollers, query engine, service facade, scheduler.
func buildCore(cfg *config.Config, logger *slog.Logger) (*core, error) {
	clk := clock.System{}

	st, err := store.Open(cfg.StorePath, cfg.Retention.MaxPostings, clk)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	limiter := ratelimit.New(clk)
	tp := transport.NewClient(cfg.RequestTimeout)
	httpClient := &http.Client{Timeout: 30 * time.Second}
	sink := setupPublisher(cfg, httpClient, logger)
	rec := stats.NewRecorder(clk)

	var pollers []*poller.SourcePoller
	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}

		ad, err := adapter.ForTag(src.Adapter, src.Name)
		if err != nil {
			st.Close()
			return nil, err
		}

		limiter.Configure(src.Name, ratelimit.Limits{
			MinDelay:  src.MinDelay,
			PerWindow: src.PerWindow,
			Window:    src.Window,
		})

		p := poller.New(src, ad, tp, limiter, st, sink, rec, cfg.Backoff, cfg.RequestTimeout, clk, logger)
		pollers = append(pollers, p)
		logger.Info("registered source", "name", src.Name, "adapter", src.Adapter, "interval", src.Interval.String())
	}

	if len(pollers) == 0 {
		st.Close()
		return nil, fmt.Errorf("no sources to poll")
	}

	engine := query.NewEngine(st)
	svc := service.New(pollers, limiter, engine, rec)
	sched := scheduler.New(pollers, logger)

	return &core{
		service:   svc,
		scheduler: sched,
		store:     st,
		logger:    logger,
	}, nil
}

// printPostings writes postings to stdout in a compact fixed-width table.
func printPostings(postings []model.Posting) {
	if len(postings) == 0 {
		fmt.Println("no postings")
		return
	}
	for _, p := range postings {
		posted := p.PostedAt.Format("2006-01-02")
		if p.ApproxDate {
			posted = "~" + posted
		}
		fmt.Printf("%-25.25s  %-40.40s  %-25.25s  %-11s  %s\n",
			p.Company, p.Title, p.Location, posted, p.URL)
	}
}
