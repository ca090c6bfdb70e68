package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/finrag-go/internal/logging"
	"github.com/54b3r/finrag-go/internal/server"
)

// NewServeCmd constructs the `finrag serve` command, which starts the HTTP
// API over the document library.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the finrag HTTP API",
		Long: `Start the finrag HTTP server.

Documents are uploaded to POST /api/documents and addressed by their SHA-256
fingerprint afterwards. Readiness (GET /api/ready) probes the chat model,
the history database and, when configured, Qdrant. Prometheus metrics are
served on GET /metrics.

Examples:
  finrag serve
  finrag serve --port 9090
  FINRAG_API_KEY=secret VECTOR_STORE=qdrant finrag serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			a, err := buildApp(ctx, log, prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			pingers := []server.Pinger{
				server.NewLLMPinger(a.chat, string(a.providerCfg.Backend), 0),
			}
			if a.history != nil {
				pingers = append(pingers, server.NewHistoryPinger(a.history))
			}
			if a.qdrant != nil {
				pingers = append(pingers, server.NewQdrantPinger(a.qdrant))
			}

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("FINRAG_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("FINRAG_PORT", port)
			}

			srv, err := server.New(server.NewLibrary(a.manager), &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("FINRAG_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting", slog.String("provider", string(a.providerCfg.Backend)))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
