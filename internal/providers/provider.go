package providers

import (
	"context"
	"fmt"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response carries the model's text answer.
type Response struct {
	Text       string
	TokensUsed int
}

// Provider sends completion requests to an LLM backend.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

const defaultMaxTokens = 1024

// DefaultModels maps provider names to the model used when none is configured.
var DefaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-20250514",
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-2.0-flash",
	"ollama":    "llama3",
}

// New creates a provider by name. An empty model selects the provider default.
func New(provider, model string) (Provider, error) {
	name := Canonical(provider)
	if model == "" {
		model = DefaultModels[name]
	}
	switch name {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "gemini":
		return NewGemini(model)
	case "ollama":
		return NewOllama(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

// Canonical resolves provider aliases.
func Canonical(provider string) string {
	switch provider {
	case "google":
		return "gemini"
	case "lmstudio":
		return "ollama"
	default:
		return provider
	}
}
