package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/finrag-go/internal/answer"
	"github.com/54b3r/finrag-go/internal/chunker"
	"github.com/54b3r/finrag-go/internal/embedder"
	"github.com/54b3r/finrag-go/internal/extract"
	"github.com/54b3r/finrag-go/internal/finmetrics"
	"github.com/54b3r/finrag-go/internal/ingestion"
	"github.com/54b3r/finrag-go/internal/provider"
	"github.com/54b3r/finrag-go/internal/rag"
	"github.com/54b3r/finrag-go/internal/session"
	"github.com/54b3r/finrag-go/internal/store"
	"github.com/54b3r/finrag-go/internal/tokenizer"
	"github.com/54b3r/finrag-go/internal/tracing"
)

// buildPipeline wires extraction and chunking. It needs no credentials
// beyond the optional unipdf license.
func buildPipeline(log *slog.Logger) (*ingestion.Pipeline, error) {
	if key := os.Getenv("UNIDOC_LICENSE_API_KEY"); key != "" {
		if err := extract.SetLicense(key); err != nil {
			return nil, fmt.Errorf("pdf license: %w", err)
		}
	} else {
		log.Warn("UNIDOC_LICENSE_API_KEY is not set, PDF extraction may be watermarked or refused")
	}

	tok := tokenizer.Load(log, os.Getenv("TOKENIZER_ENCODING"))
	ch, err := chunker.New(chunker.Config{
		ChunkSize:    getEnvInt("CHUNK_SIZE", 0),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 0),
		MaxChunks:    getEnvInt("CHUNK_MAX", 0),
	}, tok)
	if err != nil {
		return nil, err
	}

	ex := extract.Auto{
		PDF:  extract.PDFExtractor{Logger: log},
		Text: extract.TextExtractor{},
	}
	return ingestion.NewPipeline(ex, ch, nil, log)
}

// app is the fully wired document service shared by ask, metrics, serve
// and chat.
type app struct {
	pipeline    *ingestion.Pipeline
	manager     *session.Manager
	chat        model.BaseChatModel
	providerCfg *provider.Config
	qdrant      *qdrant.Client
	history     *store.SQLiteStore
	closers     []func()
}

// Close releases every resource in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires providers, stores and the session manager from the
// environment. reg receives embedding metrics and may be nil.
func buildApp(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if flush, ok := tracing.Install(); ok {
		a.closers = append(a.closers, flush)
		log.Info("langfuse tracing enabled")
	} else {
		log.Debug("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
	}

	if err := embedder.Validate(log); err != nil {
		return nil, err
	}

	a.pipeline, err = buildPipeline(log)
	if err != nil {
		return nil, err
	}

	a.providerCfg = provider.ConfigFromEnv()
	a.chat, err = provider.New(ctx, a.providerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised",
		slog.String("provider", string(a.providerCfg.Backend)),
		slog.String("model", a.providerCfg.ModelName()),
	)

	emb, err := embedder.NewFromEnv(ctx, log, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", emb.Name()), slog.Int("dimensions", emb.Dimensions()))

	stores, err := a.buildStores(log, emb.Dimensions())
	if err != nil {
		return nil, err
	}

	hist := a.openHistory(log)

	topK := getEnvInt("RAG_TOP_K", 0)
	composer, err := answer.New(a.chat, answer.Config{
		TopK:          topK,
		Temperature:   a.providerCfg.Tuning.Temperature,
		NoTemperature: !a.providerCfg.AcceptsTemperature(),
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	metrics, err := finmetrics.New(a.chat, log)
	if err != nil {
		return nil, err
	}

	cfg := session.Config{
		Stores:   stores,
		Embedder: emb,
		TopK:     topK,
		Logger:   log,
	}
	// A nil *SQLiteStore must not become a non-nil interface.
	if hist != nil {
		cfg.History = hist
	}
	a.manager, err = session.NewManager(a.pipeline, composer, metrics, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := a.manager.Close(); err != nil {
			log.Warn("session: close failed", slog.Any("error", err))
		}
	})
	return a, nil
}

// buildStores selects the per-document vector store from VECTOR_STORE.
func (a *app) buildStores(log *slog.Logger, dims int) (rag.StoreFactory, error) {
	switch kind := getEnvOrDefault("VECTOR_STORE", "memory"); kind {
	case "memory":
		return rag.MemoryStores(), nil
	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		client, err := rag.NewQdrantClient(rag.QdrantConfig{
			Host:   host,
			Port:   port,
			APIKey: os.Getenv("QDRANT_API_KEY"),
			UseTLS: os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		a.qdrant = client
		a.closers = append(a.closers, func() { _ = client.Close() })
		log.Info("qdrant vector store ready", slog.String("host", host), slog.Int("port", port))
		return rag.QdrantStores(client, dims), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE %q, valid values: memory, qdrant", kind)
	}
}

// openHistory opens the question log. FINRAG_DB_PATH overrides the default
// path (~/.finrag/history.db); "disabled" turns it off. Failures disable
// history rather than the command.
func (a *app) openHistory(log *slog.Logger) *store.SQLiteStore {
	dbPath := os.Getenv("FINRAG_DB_PATH")
	if dbPath == "disabled" {
		log.Info("history: disabled via FINRAG_DB_PATH=disabled")
		return nil
	}
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
		dbPath = p
	}
	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	a.history = hs
	a.closers = append(a.closers, func() { _ = hs.Close() })
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs
}

// openDocument loads a file path or URL and opens it in the manager.
func (a *app) openDocument(ctx context.Context, locator string, log *slog.Logger) (*session.Document, error) {
	src, err := a.pipeline.Load(ctx, locator)
	if err != nil {
		return nil, err
	}
	doc, err := a.manager.Open(ctx, src, func(msg string) { log.Info(msg) })
	if err != nil {
		return nil, err
	}
	if !doc.Queryable() {
		log.Warn("document has no searchable text", slog.String("name", doc.Name()))
	}
	return doc, nil
}

// getEnvOrDefault returns the value of the environment variable key, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the environment variable key, or
// fallback if the variable is unset, empty, or not a valid integer.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
