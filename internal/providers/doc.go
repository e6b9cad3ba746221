// Package providers implements Provider for each supported LLM backend:
// Anthropic, OpenAI, Google Gemini, and Ollama or LM Studio for local models.
//
// Rate-limit (429) and server (5xx) replies are retried with exponential
// back-off. Authentication failures are reported through IsAuthError and
// never retried. HTTP clients are plain struct fields so tests can point them
// at httptest servers.
package providers
