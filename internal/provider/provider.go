package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/thinkwright/agent-trajectory/internal/config"
)

// CompletionRequest is the input to an LLM completion.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	JSONResponse bool // ask the provider for a JSON-only reply where supported
}

// CompletionResponse is the output from an LLM completion.
type CompletionResponse struct {
	Text      string
	Model     string
	LatencyMs int64
}

// LLMClient is the interface for making completions against any LLM provider.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Config holds provider configuration.
type Config struct {
	Provider  string // "gemini", "anthropic", "openai", "openai-compatible"
	Model     string
	BaseURL   string // overrides the provider endpoint; required for openai-compatible
	APIKeyEnv string // env var name to read API key from
	MaxTokens int
}

const (
	DefaultProvider    = "gemini"
	DefaultGeminiModel = "gemini-2.0-flash"
	defaultMaxTokens   = 8192
)

var defaultModels = map[string]string{
	"gemini":    DefaultGeminiModel,
	"anthropic": "claude-sonnet-4-5-20250514",
	"openai":    "gpt-4o",
}

// DefaultModel returns the model used for provider when none is configured.
// openai-compatible has no default.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// NewClient creates an LLMClient from configuration. A missing credential is
// reported as a *config.ConfigurationError.
func NewClient(cfg Config) (LLMClient, error) {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}

	switch cfg.Provider {
	case "gemini":
		if cfg.Model == "" {
			cfg.Model = DefaultModel("gemini")
		}
		apiKey, err := requireKey(cfg.APIKeyEnv, "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		return &GeminiClient{
			apiKey:    apiKey,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			baseURL:   cfg.BaseURL,
		}, nil

	case "anthropic":
		if cfg.Model == "" {
			cfg.Model = DefaultModel("anthropic")
		}
		apiKey, err := requireKey(cfg.APIKeyEnv, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return &AnthropicClient{
			apiKey:    apiKey,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			baseURL:   cfg.BaseURL,
		}, nil

	case "openai":
		if cfg.Model == "" {
			cfg.Model = DefaultModel("openai")
		}
		apiKey, err := requireKey(cfg.APIKeyEnv, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return &OpenAIClient{
			apiKey:    apiKey,
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			baseURL:   baseURL,
		}, nil

	case "openai-compatible":
		if cfg.BaseURL == "" {
			return nil, &config.ConfigurationError{Setting: "oracle.base_url", Reason: "is required for the openai-compatible provider"}
		}
		if cfg.Model == "" {
			return nil, &config.ConfigurationError{Setting: "oracle.model", Reason: "is required for the openai-compatible provider"}
		}
		apiKey := ""
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		return &OpenAIClient{
			apiKey:    apiKey, // may be empty for local providers like Ollama
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			baseURL:   cfg.BaseURL,
		}, nil

	default:
		return nil, &config.ConfigurationError{
			Setting: "oracle.provider",
			Reason:  fmt.Sprintf("unknown provider %q (supported: gemini, anthropic, openai, openai-compatible)", cfg.Provider),
		}
	}
}

func requireKey(keyEnv, fallback string) (string, error) {
	if keyEnv == "" {
		keyEnv = fallback
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return "", &config.ConfigurationError{
			Setting: keyEnv,
			Reason:  fmt.Sprintf("environment variable %s is not set", keyEnv),
		}
	}
	return apiKey, nil
}
