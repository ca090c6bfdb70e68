package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel      = "text-embedding-3-small"
	defaultOpenAIDimensions = 1536
	defaultAzureAPIVersion  = "2024-10-21"
)

type openaiEmbedAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIConfig configures an [OpenAIClient] for OpenAI or Azure OpenAI.
type OpenAIConfig struct {
	APIKey string
	// BaseURL overrides the API base. Required for Azure (resource endpoint).
	BaseURL string
	// Model is the embedding model, or the deployment name on Azure.
	Model string
	// Dimensions is the requested output size; zero keeps the model default.
	Dimensions int
	// Azure switches to Azure OpenAI authentication and routing.
	Azure      bool
	APIVersion string
}

// OpenAIClient embeds through the OpenAI embeddings API. The mode has no
// provider-side equivalent and is ignored.
type OpenAIClient struct {
	api        openaiEmbedAPI
	model      string
	dimensions int
	name       string
}

// NewOpenAIClient builds a go-openai client from cfg.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedder: openai requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	var (
		clientCfg openai.ClientConfig
		name      = "openai"
	)
	if cfg.Azure {
		if cfg.BaseURL == "" {
			return nil, errors.New("embedder: azure requires an endpoint")
		}
		clientCfg = openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		if cfg.APIVersion != "" {
			clientCfg.APIVersion = cfg.APIVersion
		} else {
			clientCfg.APIVersion = defaultAzureAPIVersion
		}
		name = "azure"
	} else {
		clientCfg = openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
	}

	return &OpenAIClient{
		api:        openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		name:       name,
	}, nil
}

func (c *OpenAIClient) Name() string { return c.name }

// EmbedBatch sends texts in one request and orders the vectors by index.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string, _ Mode) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, &ProviderError{Provider: c.name, Code: openaiStatus(err), Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrCountMismatch, len(texts), len(resp.Data))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedder: %s index %d out of range [0, %d)", c.name, d.Index, len(texts))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func openaiStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
