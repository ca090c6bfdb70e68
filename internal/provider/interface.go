// Package provider selects and constructs the chat model that writes
// answers and metric tables. Supported backends: Gemini, OpenAI, Azure
// OpenAI, Ollama and Volcengine Ark.
package provider

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendArk selects Volcengine Ark.
	BackendArk Backend = "ark"
)

// DefaultTemperature is the sampling temperature used for answers.
const DefaultTemperature float32 = 0.2

// ProviderGemini holds Google AI Studio credentials.
type ProviderGemini struct {
	APIKey string
	Model  string
}

// ProviderOpenAI holds OpenAI credentials.
type ProviderOpenAI struct {
	APIKey string
	Model  string
}

// ProviderAzureOpenAI holds Azure OpenAI Service settings. Deployment is
// the deployment name, which Azure uses in place of a model name.
type ProviderAzureOpenAI struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// ProviderOllama holds the address and model of a local Ollama server.
type ProviderOllama struct {
	Host  string
	Model string
}

// ProviderArk holds Volcengine Ark credentials. Model is the endpoint ID.
type ProviderArk struct {
	APIKey string
	Model  string
}

// SharedTuning holds generation parameters common to every backend.
type SharedTuning struct {
	MaxTokens   int
	Temperature float32
}

// Config is the resolved provider configuration. Only the block matching
// Backend is read.
type Config struct {
	Backend     Backend
	Gemini      ProviderGemini
	OpenAI      ProviderOpenAI
	AzureOpenAI ProviderAzureOpenAI
	Ollama      ProviderOllama
	Ark         ProviderArk
	Tuning      SharedTuning
}

// Factory constructs a chat model from a Config. Implementations must be
// safe to call from multiple goroutines.
type Factory interface {
	New(ctx context.Context, cfg *Config) (model.BaseChatModel, error)
}

// FactoryFunc adapts a function to [Factory].
type FactoryFunc func(ctx context.Context, cfg *Config) (model.BaseChatModel, error)

// New implements [Factory].
func (f FactoryFunc) New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	return f(ctx, cfg)
}
