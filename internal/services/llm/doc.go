// Package llm is a small client for OpenAI-compatible chat-completion
// endpoints (OpenRouter by default).
//
// The classifier uses Complete to ask which rule a document matches and
// HealthCheck to decide whether the model is reachable. Requests that fail
// with 408/429/5xx or a network timeout are retried with exponential backoff;
// context cancellation stops retries immediately. Callers are expected to
// fall back to keyword matching when this client errors.
package llm
