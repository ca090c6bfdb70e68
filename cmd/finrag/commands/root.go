// Package commands defines all Cobra CLI commands for the finrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/finrag-go/internal/audit"
	"github.com/54b3r/finrag-go/internal/config"
	"github.com/54b3r/finrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finrag",
		Short: "finrag: question answering over financial documents",
		Long: `finrag reads a financial report (PDF or text), splits it into passages,
indexes them with an embedding model and answers questions with a chat model,
grounded in the most relevant passages. It can also extract a table of key
financial metrics.

Providers are selected via MODEL_PROVIDER and EMBEDDING_PROVIDER or a YAML
config file (~/.finrag/config.yaml). Credentials are read from the
environment only.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			audit.LogCommandStart(log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.finrag/config.yaml)")

	root.AddCommand(
		NewChunkCmd(),
		NewAskCmd(),
		NewMetricsCmd(),
		NewServeCmd(),
		NewChatCmd(),
		NewVersionCmd(),
	)

	return root
}
