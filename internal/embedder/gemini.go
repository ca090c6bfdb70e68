package embedder

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel      = "gemini-embedding-001"
	defaultGeminiDimensions = 768

	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// geminiEmbedAPI is the slice of genai.Models used here; tests substitute it.
type geminiEmbedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiConfig configures a [GeminiClient].
type GeminiConfig struct {
	// APIKey is the Google AI Studio key.
	APIKey string
	// Model defaults to gemini-embedding-001.
	Model string
	// Dimensions is the requested output size. Defaults to 768.
	Dimensions int
}

// GeminiClient embeds through the Gemini API. Mode selects the
// RETRIEVAL_DOCUMENT or RETRIEVAL_QUERY task type.
type GeminiClient struct {
	api        geminiEmbedAPI
	model      string
	dimensions int
}

// NewGeminiClient builds a genai client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedder: gemini requires GOOGLE_API_KEY or EMBEDDING_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to create gemini client: %w", err)
	}
	return newGeminiClient(client.Models, cfg), nil
}

func newGeminiClient(api geminiEmbedAPI, cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultGeminiDimensions
	}
	return &GeminiClient{api: api, model: cfg.Model, dimensions: cfg.Dimensions}
}

func (c *GeminiClient) Name() string { return "gemini" }

// EmbedBatch sends texts in one EmbedContent request.
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := c.api.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		TaskType:             geminiTaskType(mode),
		OutputDimensionality: genai.Ptr(int32(c.dimensions)),
	})
	if err != nil {
		pe := &ProviderError{Provider: c.Name(), Err: err}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			pe.Code = apiErr.Code
		}
		return nil, pe
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedder: gemini returned an empty embedding at %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func geminiTaskType(mode Mode) string {
	if mode == ModeQuery {
		return taskRetrievalQuery
	}
	return taskRetrievalDocument
}
