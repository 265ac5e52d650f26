package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"internwatch/internal/query"
)

var (
	queryLimit  int
	querySource string
	querySince  time.Duration
)

var queryCmd = &cobra.Command{
	Use:   "query [keywords...]",
	Short: "Fetch once, then search the accumulated postings",
	Long: `Polls every enabled source once to populate the store, then runs a
keyword search against it. Quote a phrase to match it as a whole:

  internwatch query swe "new york"
  internwatch query --source linkedin --limit 10 intern`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, fmt.Sprintf("max results (default %d, cap %d)", query.DefaultLimit, query.MaxLimit))
	queryCmd.Flags().StringVar(&querySource, "source", "", "restrict to one source")
	queryCmd.Flags().DurationVar(&querySince, "since", 0, "only postings ingested within this duration (e.g. 24h)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	c, err := buildCore(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The store starts empty each run, so populate it first.
	if _, err := c.service.TriggerFetch(ctx, querySource); err != nil {
		logger.Warn("some sources did not fetch", "error", err)
	}

	keywords, err := query.ParseKeywords(strings.Join(args, " "))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	f := query.Filter{
		Keywords: keywords,
		Limit:    queryLimit,
		Source:   querySource,
	}
	if querySince > 0 {
		f.Since = time.Now().Add(-querySince)
	}

	results, err := c.service.Query(ctx, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("%d posting(s)\n", len(results))
	printPostings(results)
	return nil
}
