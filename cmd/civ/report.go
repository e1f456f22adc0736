package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/abelbrown/civic/internal/model"
)

type reportFetcher interface {
	ByEntityAndRole(ctx context.Context, entityName, role string) (*model.Report, error)
}

type reportOptions struct {
	name     string
	role     string
	markdown bool
	style    string // glamour style; empty picks one from the terminal
	width    int
}

func newReportCmd() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report NAME...",
		Short: "Print the research report for a candidate",
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

			if opts.role == "" {
				opts.role = cfg.UI.DefaultRole
			}
			opts.name = strings.Join(args, " ")
			client := newClient(cfg, logger)
			return runReport(cmd.Context(), os.Stdout, client.Reports(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.role, "role", "r", "", "Role (default from config)")
	cmd.Flags().BoolVarP(&opts.markdown, "markdown", "m", false, "Render the report as styled markdown")
	cmd.Flags().IntVarP(&opts.width, "width", "w", 80, "Wrap width for --markdown")
	return cmd
}

func reportSections(r *model.Report) []struct{ label, text string } {
	return []struct{ label, text string }{
		{"Position", r.Position},
		{"Background", r.Background},
		{"Accomplishments", r.Accomplishments},
		{"Criticisms", r.Criticisms},
		{"Summary", r.Summary},
	}
}

func runReport(ctx context.Context, w io.Writer, svc reportFetcher, opts reportOptions) error {
	r, err := svc.ByEntityAndRole(ctx, opts.name, opts.role)
	if err != nil {
		return fmt.Errorf("fetch report for %q: %w", opts.name, err)
	}
	if opts.markdown {
		return renderMarkdown(w, r, opts)
	}

	fmt.Fprintf(w, "%s (%s)  report %s\n", opts.name, opts.role, r.ID)
	if !r.Freshness.IsFresh {
		fmt.Fprintf(w, "stale: %d days old\n", r.Freshness.AgeDays)
	}
	for _, sec := range reportSections(r) {
		if strings.TrimSpace(sec.text) == "" {
			continue
		}
		fmt.Fprintf(w, "\n== %s ==\n%s\n", sec.label, sec.text)
	}
	return nil
}

// reportMarkdown lays r out as a markdown document.
func reportMarkdown(r *model.Report, name, role string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n*%s*", name, role)
	if r.EntityParty != "" {
		fmt.Fprintf(&b, " · %s", r.EntityParty)
	}
	b.WriteString("\n")
	if !r.Freshness.IsFresh {
		fmt.Fprintf(&b, "\n> This report is %d days old.\n", r.Freshness.AgeDays)
	}
	for _, sec := range reportSections(r) {
		if strings.TrimSpace(sec.text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", sec.label, sec.text)
	}
	if len(r.Sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, s := range r.Sources {
			fmt.Fprintf(&b, "- [%s](%s)\n", s.Title, s.URL)
		}
	}
	return b.String()
}

func renderMarkdown(w io.Writer, r *model.Report, opts reportOptions) error {
	style := glamour.WithAutoStyle()
	if opts.style != "" {
		style = glamour.WithStylePath(opts.style)
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(opts.width))
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := renderer.Render(reportMarkdown(r, opts.name, opts.role))
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
