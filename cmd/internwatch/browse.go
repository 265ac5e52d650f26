package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"internwatch/internal/browse"
	"internwatch/internal/model"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse postings interactively (TUI)",
	Long:  "Fetches every enabled source once, then opens an interactive browser over the accumulated postings.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	// Browse runs a TUI; log output before the alt screen starts corrupts
	// the display.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	c, err := buildCore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	admitted, err := browse.RunLoader("all sources", func(ctx context.Context) ([]model.Posting, error) {
		return c.service.TriggerFetch(ctx, "")
	})
	if err != nil && len(admitted) == 0 {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	return browse.Run(c.service.Query, c.service.Sources())
}
