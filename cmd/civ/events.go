package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abelbrown/civic/internal/otel"
)

// followPoll is how often follow mode re-reads the log without file
// notifications.
const followPoll = 100 * time.Millisecond

var levelColors = map[otel.Level]*color.Color{
	otel.LevelDebug: color.New(color.Faint),
	otel.LevelWarn:  color.New(color.FgYellow),
	otel.LevelError: color.New(color.FgRed, color.Bold),
}

type eventsOptions struct {
	tail    int
	follow  bool
	rawJSON bool
	filter  otel.Filter
	wake    <-chan struct{} // signals that the log grew; nil means poll only
}

func newEventsCmd() *cobra.Command {
	var (
		opts  eventsOptions
		kind  string
		level string
		comp  string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "JSONL event log viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logPath := cfg.EventsPath()
			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("%w\n  Event log not found at %s\n  Run the civic TUI first to generate events", err, logPath)
			}
			defer f.Close()

			opts.filter = otel.Filter{KindPrefix: kind, Comp: comp, MinLevel: otel.Level(level)}
			if opts.follow {
				wake, stop, err := watchFile(logPath)
				if err != nil {
					fmt.Fprintf(os.Stderr, "civ: watch %s: %v (polling instead)\n", logPath, err)
				} else {
					defer stop()
					opts.wake = wake
				}
			}
			return runEvents(cmd.Context(), os.Stdout, f, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.tail, "tail", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow mode (like tail -f)")
	cmd.Flags().BoolVar(&opts.rawJSON, "json", false, "Output raw JSON lines")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by event kind prefix (e.g. 'research')")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&comp, "comp", "", "Filter by component name")
	return cmd
}

// runEvents prints the last opts.tail matching events from r. In follow
// mode it then keeps reading lines appended to r until ctx is done, waking on
// opts.wake, and polling as a fallback.
func runEvents(ctx context.Context, w io.Writer, r io.Reader, opts eventsOptions) error {
	events, skipped, err := otel.ReadEvents(r, opts.filter, opts.tail)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintln(w, formatEvent(e, opts.rawJSON))
	}
	if skipped > 0 && !opts.rawJSON {
		fmt.Fprintf(w, "(%d malformed lines skipped)\n", skipped)
	}
	if !opts.follow {
		return nil
	}

	poll := followPoll
	if opts.wake != nil {
		poll *= 10
	}

	// ReadEvents consumed r to EOF
	reader := bufio.NewReader(r)
	var partial []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		partial = append(partial, chunk...)
		if err == io.EOF {
			select {
			case <-ctx.Done():
				return nil
			case <-opts.wake:
			case <-time.After(poll):
			}
			continue
		}
		if err != nil {
			return err
		}

		line := trimLine(partial)
		partial = partial[:0]
		var e otel.Event
		if json.Unmarshal(line, &e) != nil || !opts.filter.Match(e) {
			continue
		}
		fmt.Fprintln(w, formatEvent(e, opts.rawJSON))
	}
}

// watchFile reports writes to path on the returned channel until stop is
// called. Bursts of writes collapse into one signal.
func watchFile(path string) (<-chan struct{}, func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, nil, err
	}

	wake := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) {
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return wake, watcher.Close, nil
}

func formatEvent(e otel.Event, raw bool) string {
	if raw {
		b, err := json.Marshal(e)
		if err != nil {
			return ""
		}
		return string(b)
	}

	ts := e.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(string(e.Level))
	if lvl == "" {
		lvl = "?"
	}
	lvl = fmt.Sprintf("%-5s", lvl)
	if c, ok := levelColors[e.Level]; ok {
		lvl = c.Sprint(lvl)
	}

	parts := []string{fmt.Sprintf("%s %s [%-8s] %-26s", ts, lvl, e.Comp, e.Kind)}

	if e.Msg != "" {
		parts = append(parts, "- "+e.Msg)
	}
	if e.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(e.DurMs), e.DurMs))
	}
	if e.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", e.Count))
	}
	if e.Tier != "" {
		parts = append(parts, "tier="+e.Tier)
	}
	if e.SessionID != "" {
		parts = append(parts, "session="+truncate(e.SessionID, 12))
	}
	if e.Epoch > 0 {
		parts = append(parts, fmt.Sprintf("epoch=%d", e.Epoch))
	}
	if e.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", e.Query))
	}
	if e.Err != "" {
		parts = append(parts, "err="+e.Err)
	}

	return strings.Join(parts, " ")
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
