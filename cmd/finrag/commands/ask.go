package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/finrag-go/internal/logging"
)

// NewAskCmd constructs the `finrag ask` command, which answers one question
// about a document and prints the summary.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <path-or-url> <question>",
		Short: "Ask a question about a financial document",
		Long: `Index a document and answer one natural language question about it.

The answer is the model's short summary of the passages most relevant to the
question. If the document has no text layer, or the provider is unavailable,
an advisory message is printed instead.

Examples:
  finrag ask ./10-K.pdf "How did operating margin change year over year?"
  MODEL_PROVIDER=openai finrag ask ./q3.pdf "What drove the revenue growth?"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			doc, err := a.openDocument(ctx, args[0], log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			reply := doc.Ask(ctx, strings.Join(args[1:], " "))
			if reply.Summary != "" {
				fmt.Fprintln(cmd.OutOrStdout(), reply.Summary)
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), reply.Message)
			return nil
		},
	}

	return cmd
}
