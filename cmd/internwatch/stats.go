package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Fetch once and print per-source poll counters",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	if _, err := c.service.TriggerFetch(ctx, ""); err != nil {
		logger.Warn("some sources did not fetch", "error", err)
	}

	perSource := c.service.Stats()
	names := make([]string, 0, len(perSource))
	for name := range perSource {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%-20s %-22s %-22s %-9s %-9s %s\n", "Source", "LastSuccess", "LastFailure", "Ingested", "Skipped", "LastError")
	fmt.Println(strings.Repeat("─", 100))
	for _, name := range names {
		st := perSource[name]
		fmt.Printf("%-20s %-22s %-22s %-9d %-9d %s\n",
			name, fmtTime(st.LastSuccess), fmtTime(st.LastFailure),
			st.TotalIngested, st.TotalSkipped, st.LastError)
	}
	return nil
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04:05")
}
