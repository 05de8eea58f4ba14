// Package llm provides an OpenAI-compatible chat client used to produce
// dialogue turns, video scripts, participant suggestions, and image prompt
// rewrites.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send an ordered message list with a per-request model and
// temperature, receive the raw JSON content.
// Client.CompleteJSON: system/user prompt shorthand using the default model.
// Client.HealthCheck: verify API key and model availability.
// DecodeStrictJSON: decode a response that must be exactly one JSON value.
// DecodeLLMJSON: lenient decoding for auxiliary prompts (suggestions, health).
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty content, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 5 attempts by
// default). Context cancellation aborts retries immediately. Retries never
// alter or repair the content a model returns.
package llm
