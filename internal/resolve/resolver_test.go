package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mender/internal/providers"
)

type fakeProvider struct {
	reqs []providers.Request
	text string
	err  error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, req providers.Request) (providers.Response, error) {
	p.reqs = append(p.reqs, req)
	return providers.Response{Text: p.text}, p.err
}

func TestIsUsable(t *testing.T) {
	assert.False(t, IsUsable(""))
	assert.False(t, IsUsable(" \n\t "))
	assert.True(t, IsUsable(" x "))
}

func TestLLMResolver_Query(t *testing.T) {
	p := &fakeProvider{text: "  Remove x.\n"}
	r := NewLLMResolver(p, LLMOptions{MaxTokens: 256})

	answer, err := r.Query(context.Background(), Query{
		File: "a.c", Line: 2, Context: []string{"int main() {", "  int x;"}, Offset: 1, Message: "unused x",
	})
	require.NoError(t, err)
	assert.Equal(t, "  Remove x.\n", answer, "answer is returned verbatim")

	require.Len(t, p.reqs, 1)
	assert.Equal(t, SystemPrompt(), p.reqs[0].System)
	assert.Equal(t, 256, p.reqs[0].MaxTokens)
	assert.Contains(t, p.reqs[0].Prompt, "unused x")
	assert.Contains(t, p.reqs[0].Prompt, "int x;")
}

func TestLLMResolver_RedactsSnippet(t *testing.T) {
	p := &fakeProvider{text: "ok"}
	r := NewLLMResolver(p, LLMOptions{RedactSecrets: true})
	ctxLines := []string{`static const char *password = "correct-horse-battery";`}

	_, err := r.Query(context.Background(), Query{File: "a.c", Line: 1, Context: ctxLines, Message: "m"})
	require.NoError(t, err)
	assert.NotContains(t, p.reqs[0].Prompt, "correct-horse-battery")
	assert.Contains(t, ctxLines[0], "correct-horse-battery", "caller's lines untouched")
}

func TestLLMResolver_WithheldPathSendsNoSource(t *testing.T) {
	p := &fakeProvider{text: "ok"}
	r := NewLLMResolver(p, LLMOptions{Withhold: []string{"secrets/"}})

	_, err := r.Query(context.Background(), Query{File: "secrets/keys.c", Line: 1, Context: []string{"int k = 1;"}, Message: "m"})
	require.NoError(t, err)
	assert.NotContains(t, p.reqs[0].Prompt, "int k = 1;")
	assert.Contains(t, p.reqs[0].Prompt, "Source is not available")
}

func TestLLMResolver_ProviderError(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	_, err := NewLLMResolver(p, LLMOptions{}).Query(context.Background(), Query{File: "a.c", Line: 1})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "fake: "))
}

func TestLLMResolver_AuthErrorSurvivesWrapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "bad")
	t.Setenv("MENDER_OPENAI_BASE_URL", server.URL)

	p, err := providers.New("openai", "gpt-4o-mini")
	require.NoError(t, err)

	_, err = NewLLMResolver(p, LLMOptions{}).Query(context.Background(), Query{File: "a.c", Line: 1, Message: "m"})
	require.Error(t, err)
	assert.True(t, providers.IsAuthError(err))
}
