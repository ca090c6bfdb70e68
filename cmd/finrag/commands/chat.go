package commands

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/54b3r/finrag-go/internal/logging"
	"github.com/54b3r/finrag-go/internal/tui"
)

// NewChatCmd constructs the `finrag chat` command, an interactive terminal
// session over one document.
func NewChatCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "chat <path-or-url>",
		Short: "Chat with a financial document in the terminal",
		Long: `Open a document in an interactive terminal UI. Type questions and press
Enter; Tab switches to the financial metrics view.

Logs would corrupt the screen, so they go to --log-file
(default: ~/.finrag/chat.log).

Examples:
  finrag chat ./10-K.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if logFile == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("chat: %w", err)
				}
				logFile = filepath.Join(home, ".finrag", "chat.log")
			}
			if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
			if err != nil {
				return fmt.Errorf("chat: failed to open log file: %w", err)
			}
			defer f.Close()

			log := logging.NewWithWriter(f, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, nil)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer a.Close()

			fmt.Fprintln(cmd.ErrOrStderr(), "Reading document...")
			doc, err := a.openDocument(ctx, args[0], log)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}

			if _, err := tea.NewProgram(tui.New(ctx, doc), tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "File that receives logs while the UI is running")

	return cmd
}
