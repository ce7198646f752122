package llm

import (
	"context"

	"conflux/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one text-generation call
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Completer is the minimal surface components depend on
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest contains the input for one collaborator call.
// User text embedded in User must already be sanitized and delimiter-wrapped
// (see Sanitize and WrapUntrusted).
type CompletionRequest struct {
	System      string
	User        string
	Model       string // Provider-specific; empty uses the configured default
	MaxTokens   int
	Temperature float32
	ExpectJSON  bool
}

// CompletionResponse contains the collaborator's output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for generation
	Temperature float32

	// MaxRetries on transport failures
	MaxRetries int

	// RateLimit in requests per second, with RateBurst headroom
	RateLimit float64
	RateBurst int

	// MaxInputLen caps sanitized user text embedded in prompts
	MaxInputLen int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Timeout:     30,
		MaxTokens:   2000,
		Temperature: 0.2,
		MaxRetries:  2,
		RateLimit:   2,
		RateBurst:   4,
		MaxInputLen: 12000,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(mc model.LLMConfig) Config {
	return Config{
		Provider:    mc.Provider,
		Model:       mc.Model,
		APIKey:      mc.APIKey,
		BaseURL:     mc.BaseURL,
		Timeout:     mc.Timeout,
		MaxTokens:   mc.MaxTokens,
		Temperature: mc.Temperature,
		MaxRetries:  mc.MaxRetries,
		RateLimit:   mc.RateLimit,
		RateBurst:   mc.RateBurst,
		MaxInputLen: mc.MaxInputLen,
		HTTPProxy:   mc.HTTPProxy,
		HTTPSProxy:  mc.HTTPSProxy,
		NoProxy:     mc.NoProxy,
	}
}
