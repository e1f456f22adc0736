// Command civ is the command-line companion to the civic TUI.
//
// Usage:
//
//	civ search <query>        Rank candidates against a query
//	civ report <name>         Print the research report for a candidate
//	civ history               Show recent searches
//	civ events                JSONL event log viewer
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelbrown/civic/internal/api"
	"github.com/abelbrown/civic/internal/config"
	"github.com/abelbrown/civic/internal/logging"
	"github.com/abelbrown/civic/internal/store"
)

var (
	apiFlag     string
	verboseFlag bool
	rootCmd     = &cobra.Command{
		Use:           "civ",
		Short:         "civic debug & maintenance CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(newSearchCmd(), newReportCmd(), newHistoryCmd(), newEventsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "civ:", err)
		os.Exit(1)
	}
}

// loadConfig reads the shared config and applies --api.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiFlag != "" {
		cfg.API.BaseURL = apiFlag
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, func() error, error) {
	opts := logging.Options{Level: cfg.Log.Level}
	if verboseFlag {
		opts.Level = "debug"
		opts.Console = os.Stderr
	}
	return logging.New(opts)
}

func newClient(cfg *config.Config, logger *zap.Logger) *api.Client {
	return api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithLogger(logger),
	)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.Open(cfg.DBPath())
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
