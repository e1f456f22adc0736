package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelbrown/civic/internal/model"
	"github.com/abelbrown/civic/internal/search"
)

type entityLister interface {
	List(ctx context.Context) ([]model.Entity, error)
}

type searchOptions struct {
	query     string
	limit     int
	explain   bool
	parties   []string
	positions []string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Rank candidates against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			opts.query = strings.Join(args, " ")
			client := newClient(cfg, logger)
			return runSearch(cmd.Context(), os.Stdout, client.Entities(), opts)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum results to print")
	cmd.Flags().BoolVarP(&opts.explain, "explain", "e", false, "Show scores")
	cmd.Flags().StringSliceVar(&opts.parties, "party", nil, "Only these parties")
	cmd.Flags().StringSliceVar(&opts.positions, "position", nil, "Only these positions")
	return cmd
}

func runSearch(ctx context.Context, w io.Writer, svc entityLister, opts searchOptions) error {
	all, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}
	all = search.Dedup(all)
	if len(opts.parties) > 0 {
		all = search.ByParty(all, opts.parties)
	}
	if len(opts.positions) > 0 {
		all = search.ByPosition(all, opts.positions)
	}

	matches := search.Rank(all, opts.query)
	fmt.Fprintf(w, "%d of %d candidates match %q\n", len(matches), len(all), opts.query)
	if len(matches) == 0 {
		if s := search.Suggest(all, opts.query); len(s) > 0 {
			fmt.Fprintf(w, "did you mean: %s\n", strings.Join(s, ", "))
		}
		return nil
	}

	for i, m := range matches {
		if opts.limit > 0 && i >= opts.limit {
			break
		}
		meta := strings.Trim(strings.Join([]string{m.Entity.Party, m.Entity.Position}, " / "), " /")
		line := fmt.Sprintf("%3d. %-30s %s", i+1, truncate(m.Entity.Name, 30), meta)
		if opts.explain {
			name := ""
			if m.NameMatched {
				name = " name"
			}
			line += fmt.Sprintf("  [score=%.1f terms=%d%s]", m.Score, m.Matched, name)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
