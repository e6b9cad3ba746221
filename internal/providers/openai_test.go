package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("Missing bearer token")
		}
		var body chatRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "fix it" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}
		if body.Temperature == nil || *body.Temperature != 0.2 {
			t.Errorf("Temperature = %v, want 0.2", body.Temperature)
		}
		respond(`{"choices":[{"message":{"role":"assistant","content":"Initialize n."}}],"usage":{"total_tokens":42}}`)(w, r)
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "test-key", model: "gpt-4o-mini", baseURL: server.URL, client: server.Client()}

	resp, err := o.Complete(context.Background(), Request{System: "sys", Prompt: "fix it", Temperature: 0.2})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Text != "Initialize n." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("TokensUsed = %d, want 42", resp.TokensUsed)
	}
}

func TestOpenAI_RateLimit(t *testing.T) {
	fastRetry(t)
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "k", model: "m", baseURL: server.URL, client: server.Client()}
	_, err := o.Complete(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("Expected rate limit error")
	}
	if attempts != maxRetries+1 {
		t.Errorf("attempts = %d, want %d", attempts, maxRetries+1)
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	server := httptest.NewServer(respond(`{"choices":[]}`))
	defer server.Close()

	o := &OpenAI{apiKey: "k", model: "m", baseURL: server.URL, client: server.Client()}
	if _, err := o.Complete(context.Background(), Request{Prompt: "p"}); err == nil {
		t.Error("Expected error for no choices")
	}
}

func TestOpenAI_EmptyContentIsNotAnError(t *testing.T) {
	server := httptest.NewServer(respond(`{"choices":[{"message":{"role":"assistant","content":""}}]}`))
	defer server.Close()

	o := &OpenAI{apiKey: "k", model: "m", baseURL: server.URL, client: server.Client()}
	resp, err := o.Complete(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Text != "" {
		t.Errorf("Text = %q, want empty", resp.Text)
	}
}

func TestOpenAI_ClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad model"))
	}))
	defer server.Close()

	o := &OpenAI{apiKey: "k", model: "m", baseURL: server.URL, client: server.Client()}
	_, err := o.Complete(context.Background(), Request{Prompt: "p"})
	if err == nil || IsAuthError(err) {
		t.Fatalf("Expected plain API error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", attempts)
	}
}

func TestNewOpenAI_BaseURLOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("MENDER_OPENAI_BASE_URL", "http://proxy.local/v1/chat/completions")
	o, err := NewOpenAI("m")
	if err != nil {
		t.Fatalf("NewOpenAI error: %v", err)
	}
	if o.baseURL != "http://proxy.local/v1/chat/completions" {
		t.Errorf("baseURL = %q", o.baseURL)
	}
}
