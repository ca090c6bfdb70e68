package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/54b3r/finrag-go/internal/finmetrics"
	"github.com/54b3r/finrag-go/internal/logging"
)

// NewMetricsCmd constructs the `finrag metrics` command, which extracts the
// key financial metrics table of a document.
func NewMetricsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metrics <path-or-url>",
		Short: "Extract key financial metrics from a document",
		Long: `Ask the chat model for up to 20 key financial metrics of a document,
grouped under Income Statement, Balance Sheet, Cash Flow Statement and Other,
each with its latest value and the change against the comparable period.

Examples:
  finrag metrics ./annual-report.pdf
  finrag metrics --json ./annual-report.pdf | jq '."Income Statement"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}
			defer a.Close()

			doc, err := a.openDocument(ctx, args[0], log)
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			res := doc.Metrics(ctx)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			if res.Message != "" {
				fmt.Fprintln(out, res.Message)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, cat := range finmetrics.Categories {
				byName := res.Metrics[cat]
				if len(byName) == 0 {
					continue
				}
				fmt.Fprintf(tw, "%s\t\t\n", cat)
				names := make([]string, 0, len(byName))
				for n := range byName {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					m := byName[n]
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", n, m.Value, m.Delta)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")

	return cmd
}
