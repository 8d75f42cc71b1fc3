// Package llm provides an HTTP client for OpenAI-compatible chat completion
// endpoints, defaulting to the DeepSeek API.
//
// This package is used by:
//   - Translation: each subtitle batch is sent as one user prompt via Complete.
//   - Preflight: HealthCheck verifies the API key and model before a run.
//
// # Configuration
//
// Requires api_key and optionally base_url, model, temperature, max_tokens
// and timeout. Defaults target deepseek-chat at temperature 0.3 with a 2048
// token cap.
//
// # Retry Behaviour
//
// The client performs exactly one HTTP round trip per call. Callers own the
// retry policy; RetryAfter and IsTransient expose what the server reported so
// backoff loops can honour it.
package llm
