package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/finrag-go/internal/logging"
)

// NewChunkCmd constructs the `finrag chunk` command, which runs extraction
// and chunking only and prints the passages. No provider is contacted.
func NewChunkCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "chunk <path-or-url>",
		Short: "Extract and chunk a document without indexing it",
		Long: `Extract the text layer of a document, detect tables and split the corpus
into passages exactly as the indexer would. Useful to check what a report
looks like to the model before asking about it.

Examples:
  finrag chunk ./annual-report-2024.pdf
  finrag chunk --quiet https://example.com/q3-earnings.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			pipeline, err := buildPipeline(log)
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}

			src, err := pipeline.Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}
			doc, err := pipeline.Process(ctx, src, func(msg string) { log.Debug(msg) })
			if err != nil {
				return fmt.Errorf("chunk: %w", err)
			}

			log.Info("document processed",
				slog.String("fingerprint", doc.Fingerprint),
				slog.String("doc_type", doc.Metadata.DocType),
				slog.String("period", doc.Metadata.Period),
				slog.Int("chunks", len(doc.Chunks)),
				slog.Bool("searchable", doc.Searchable),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s  %d chunks\n", doc.Fingerprint[:12], doc.Name, len(doc.Chunks))
			if quiet {
				return nil
			}
			for i, c := range doc.Chunks {
				fmt.Fprintf(out, "\n--- chunk %d (%d chars) ---\n%s\n", i, len(c), strings.TrimSpace(c))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only the summary line")

	return cmd
}
