package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/mender/internal/providers"
	"github.com/dshills/mender/internal/redact"
)

// Query is what the resolver is asked about one finding group.
type Query struct {
	File string
	// Line is the 1-based line the findings were reported on.
	Line int
	// Context holds the source lines around Line; Context[Offset] is Line
	// when the file still has that line.
	Context []string
	Offset  int
	// Message is every finding message for the line, newline-joined.
	Message string
}

// Resolver produces remediation text for a query. The answer is stored and
// emitted verbatim.
type Resolver interface {
	Query(ctx context.Context, q Query) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, q Query) (string, error)

func (f ResolverFunc) Query(ctx context.Context, q Query) (string, error) { return f(ctx, q) }

// IsUsable reports whether an answer has any non-whitespace content.
func IsUsable(answer string) bool {
	return strings.TrimSpace(answer) != ""
}

// LLMOptions configures an LLMResolver.
type LLMOptions struct {
	// RedactSecrets scrubs secrets from the snippet before it is sent.
	RedactSecrets bool
	// Withhold lists gitignore-style patterns for files whose source must
	// never be sent. Findings in them are resolved from the messages alone.
	Withhold  []string
	MaxTokens int
}

// LLMResolver asks an LLM provider for fixes.
type LLMResolver struct {
	provider providers.Provider
	opts     LLMOptions
	policy   *redact.PathPolicy
}

// NewLLMResolver wraps provider.
func NewLLMResolver(provider providers.Provider, opts LLMOptions) *LLMResolver {
	return &LLMResolver{
		provider: provider,
		opts:     opts,
		policy:   redact.NewPathPolicy(opts.Withhold),
	}
}

// Query builds the prompt for q and returns the model's answer.
func (r *LLMResolver) Query(ctx context.Context, q Query) (string, error) {
	switch {
	case r.policy.Withhold(q.File):
		q.Context = nil
	case r.opts.RedactSecrets:
		q.Context, _ = redact.Lines(q.Context)
	}
	resp, err := r.provider.Complete(ctx, providers.Request{
		System:    SystemPrompt(),
		Prompt:    BuildPrompt(q),
		MaxTokens: r.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.provider.Name(), err)
	}
	return resp.Text, nil
}
