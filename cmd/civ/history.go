package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/civic/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear recent searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return runHistory(os.Stdout, history.New(st), clearAll)
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Forget all recent searches")
	return cmd
}

func runHistory(w io.Writer, h *history.History, clearAll bool) error {
	if clearAll {
		if err := h.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(w, "search history cleared")
		return nil
	}

	if err := h.Load(); err != nil {
		return err
	}
	entries := h.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, "no recent searches")
		return nil
	}
	for i, q := range entries {
		fmt.Fprintf(w, "%2d. %s\n", i+1, q)
	}
	return nil
}
