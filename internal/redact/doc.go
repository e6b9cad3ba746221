// Package redact removes secrets from source snippets before they are sent to
// an LLM provider.
//
// Detection is regex based and covers the usual shapes: API keys, JWTs,
// private key headers, AWS keys, bearer tokens, credentials embedded in
// connection strings, #define'd tokens, and provider-specific keys.
//
// A PathPolicy can withhold entire files by gitignore-style pattern.
package redact
