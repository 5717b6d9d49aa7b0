// Package llm provides an OpenAI-compatible chat client (OpenRouter by
// default) used to turn noisy plaque OCR text into a structured artwork query.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON payload.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: decode a payload that may be wrapped in code fences or prose.
//
// # Retry Behaviour
//
// The client retries HTTP 408/429/5xx responses, empty completions and
// network timeouts with exponential backoff (base 1s, max 10s, 4 attempts by
// default), honouring Retry-After. Context cancellation aborts retries
// immediately. IsTransient lets callers decide whether a final failure should
// be retried on a later run.
package llm
