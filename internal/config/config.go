// Package config loads the optional finrag YAML file and projects it onto
// environment variables. Every component reads its settings from the
// environment, so a value set in the environment always beats the file.
//
// File search order:
//  1. --config CLI flag
//  2. FINRAG_CONFIG environment variable
//  3. ~/.finrag/config.yaml
//  4. ./finrag.yaml
//
// Without a file finrag runs from env vars alone. Credentials belong in the
// environment or a secret store; the file accepts them only for local use.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML document.
type Config struct {
	// Model configures the chat model used for answers and metrics.
	Model ModelConfig `yaml:"model"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Chunking bounds passage size and count.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Retrieval configures the passage index.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Qdrant configures the optional Qdrant vector store.
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// History configures the question log.
	History HistoryConfig `yaml:"history"`

	// Tracing configures Langfuse.
	Tracing TracingConfig `yaml:"tracing"`

	// PDF configures the PDF extraction library.
	PDF PDFConfig `yaml:"pdf"`
}

// ModelConfig holds chat model settings.
type ModelConfig struct {
	// Provider selects the backend: gemini (default), openai, azure, ollama, ark.
	Provider string `yaml:"provider"`
	// Temperature is the sampling temperature for answers.
	Temperature float32 `yaml:"temperature"`
	// Gemini holds Google Gemini settings.
	Gemini GeminiConfig `yaml:"gemini"`
	// OpenAI holds OpenAI settings.
	OpenAI OpenAIConfig `yaml:"openai"`
	// Azure holds Azure OpenAI settings.
	Azure AzureConfig `yaml:"azure"`
	// Ollama holds Ollama settings.
	Ollama OllamaConfig `yaml:"ollama"`
	// Ark holds Volcengine Ark settings.
	Ark ArkConfig `yaml:"ark"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

type ArkConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the backend: gemini (default), openai, azure, ollama.
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the output vector size.
	Dimensions int `yaml:"dimensions"`
	// BatchSize is the number of texts per provider request.
	BatchSize int `yaml:"batch_size"`
	// MaxRetries bounds retries of rate-limited or unavailable responses.
	MaxRetries int `yaml:"max_retries"`
	// RPS caps outgoing embedding requests per second. Zero disables.
	RPS float64 `yaml:"rps"`
	// APIKey overrides the provider key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint overrides the provider endpoint.
	Endpoint string `yaml:"endpoint"`
}

// ChunkingConfig bounds the chunker.
type ChunkingConfig struct {
	// Size is the maximum chunk size in tokens.
	Size int `yaml:"size"`
	// Overlap is the token overlap between consecutive chunks.
	Overlap int `yaml:"overlap"`
	// MaxChunks caps the number of chunks per document.
	MaxChunks int `yaml:"max_chunks"`
}

// RetrievalConfig configures the passage index.
type RetrievalConfig struct {
	// TopK is the number of passages fed to the answer prompt.
	TopK int `yaml:"top_k"`
	// Store selects the vector store: memory (default) or qdrant.
	Store string `yaml:"store"`
}

type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	TLS    bool   `yaml:"tls"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey is the Bearer token required on /api routes. Prefer FINRAG_API_KEY.
	APIKey string `yaml:"api_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HistoryConfig struct {
	// DBPath is the SQLite path. "disabled" turns history off.
	DBPath string `yaml:"db_path"`
}

type TracingConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

type PDFConfig struct {
	// LicenseKey is the metered unipdf key. Prefer UNIDOC_LICENSE_API_KEY.
	LicenseKey string `yaml:"license_key"`
}

// envMapping maps YAML fields onto env var names. Empty and zero values are
// skipped.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"GOOGLE_API_KEY", func(c *Config) string { return c.Model.Gemini.APIKey }},
	{"GEMINI_MODEL", func(c *Config) string { return c.Model.Gemini.Model }},
	{"OPENAI_API_KEY", func(c *Config) string { return c.Model.OpenAI.APIKey }},
	{"OPENAI_MODEL", func(c *Config) string { return c.Model.OpenAI.Model }},
	{"AZURE_OPENAI_API_KEY", func(c *Config) string { return c.Model.Azure.APIKey }},
	{"AZURE_OPENAI_ENDPOINT", func(c *Config) string { return c.Model.Azure.Endpoint }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.Azure.Deployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.Azure.APIVersion }},
	{"OLLAMA_HOST", func(c *Config) string { return c.Model.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Model.Ollama.Model }},
	{"ARK_API_KEY", func(c *Config) string { return c.Model.Ark.APIKey }},
	{"ARK_MODEL", func(c *Config) string { return c.Model.Ark.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_BATCH_SIZE", func(c *Config) string { return intStr(c.Embedding.BatchSize) }},
	{"EMBEDDING_MAX_RETRIES", func(c *Config) string { return intStr(c.Embedding.MaxRetries) }},
	{"EMBEDDING_RPS", func(c *Config) string { return float64Str(c.Embedding.RPS) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Chunking.Overlap) }},
	{"CHUNK_MAX", func(c *Config) string { return intStr(c.Chunking.MaxChunks) }},
	{"RAG_TOP_K", func(c *Config) string { return intStr(c.Retrieval.TopK) }},
	{"VECTOR_STORE", func(c *Config) string { return c.Retrieval.Store }},
	{"QDRANT_HOST", func(c *Config) string { return c.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Qdrant.TLS) }},
	{"FINRAG_HOST", func(c *Config) string { return c.Server.Host }},
	{"FINRAG_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"FINRAG_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"FINRAG_DB_PATH", func(c *Config) string { return c.History.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
	{"UNIDOC_LICENSE_API_KEY", func(c *Config) string { return c.PDF.LicenseKey }},
}

// Load reads the YAML file and exports its non-empty values as env vars that
// are not already set. It returns the loaded path, or "" when no file exists.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		v := m.value(&cfg)
		if v == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue
		}
		if err := os.Setenv(m.envKey, v); err != nil {
			return "", fmt.Errorf("config: failed to set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return path, nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit
		}
		return ""
	}

	if p := os.Getenv("FINRAG_CONFIG"); p != "" && fileExists(p) {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".finrag", "config.yaml")
		if fileExists(p) {
			return p
		}
	}

	if fileExists("finrag.yaml") {
		return "finrag.yaml"
	}
	return ""
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
