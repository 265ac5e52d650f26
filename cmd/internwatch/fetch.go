package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"internwatch/internal/model"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [source]",
	Short: "Fetch now and print newly admitted postings",
	Long:  "One-shot manual fetch for one source (or all), printing the postings that were not seen before. Honors the per-source rate limit: a limited source is skipped with its retry-after.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	source := ""
	if len(args) == 1 {
		source = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	admitted, err := c.service.TriggerFetch(ctx, source)
	if err != nil {
		var rle *model.RateLimitError
		if errors.As(err, &rle) {
			fmt.Printf("rate limited: try %s again in %s\n", rle.Source, rle.RetryAfter.Round(time.Second))
		} else {
			logger.Error("fetch failed", "error", err)
		}
		if len(admitted) == 0 {
			os.Exit(1)
		}
	}

	fmt.Printf("admitted %d new posting(s)\n", len(admitted))
	printPostings(admitted)
	return nil
}
