package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultDimensions returns the vector size for backend, honouring
// EMBEDDING_DIMENSIONS.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "openai", "azure":
		return defaultOpenAIDimensions
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultGeminiDimensions
	}
}

// Backend returns the configured embedding backend: EMBEDDING_PROVIDER, then
// MODEL_PROVIDER, then gemini.
func Backend() string {
	if b := os.Getenv("EMBEDDING_PROVIDER"); b != "" {
		return b
	}
	if b := os.Getenv("MODEL_PROVIDER"); b == "openai" || b == "azure" || b == "ollama" {
		return b
	}
	return "gemini"
}

// NewClientFromEnv builds the provider client for [Backend].
//
//	gemini  GOOGLE_API_KEY, EMBEDDING_MODEL (gemini-embedding-001)
//	openai  OPENAI_API_KEY, EMBEDDING_MODEL (text-embedding-3-small)
//	azure   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_VERSION
//	ollama  OLLAMA_HOST, EMBEDDING_MODEL (nomic-embed-text)
//
// EMBEDDING_API_KEY and EMBEDDING_ENDPOINT override the inherited values.
func NewClientFromEnv(ctx context.Context) (Client, error) {
	backend := Backend()
	dims := DefaultDimensions(backend)

	switch backend {
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:     firstEnv("EMBEDDING_API_KEY", "GOOGLE_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultGeminiModel),
			Dimensions: dims,
		})

	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY"),
			BaseURL:    os.Getenv("EMBEDDING_ENDPOINT"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: dims,
		})

	case "azure":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY"),
			BaseURL:    firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: dims,
			Azure:      true,
			APIVersion: os.Getenv("AZURE_OPENAI_API_VERSION"),
		})

	case "ollama":
		return NewOllamaClient(OllamaConfig{
			Host:  getEnvOrDefault("EMBEDDING_ENDPOINT", getEnvOrDefault("OLLAMA_HOST", defaultOllamaHost)),
			Model: getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q, valid values: gemini, openai, azure, ollama", backend)
	}
}

// NewFromEnv builds a [Batcher] over [NewClientFromEnv] with batch size,
// retries, and throttling from EMBEDDING_BATCH_SIZE, EMBEDDING_MAX_RETRIES
// and EMBEDDING_RPS. reg may be nil to skip metrics.
func NewFromEnv(ctx context.Context, log *slog.Logger, reg prometheus.Registerer) (*Batcher, error) {
	client, err := NewClientFromEnv(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *Metrics
	if reg != nil {
		metrics = NewMetrics(reg)
	}

	return NewBatcher(client, BatcherConfig{
		BatchSize:  getEnvInt("EMBEDDING_BATCH_SIZE", DefaultBatchSize),
		MaxRetries: retriesFromEnv(),
		Dimensions: DefaultDimensions(Backend()),
		RPS:        getEnvFloat("EMBEDDING_RPS", 0),
		Metrics:    metrics,
		Logger:     log,
	})
}

// retriesFromEnv reads EMBEDDING_MAX_RETRIES, where 0 turns retries off.
func retriesFromEnv() int {
	n := getEnvInt("EMBEDDING_MAX_RETRIES", DefaultMaxRetries)
	if n <= 0 {
		return NoRetries
	}
	return n
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
