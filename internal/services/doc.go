// Package services defines shared utilities consumed by the pipeline stages
// and the provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, video kinds, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers (malformed response, synthesis failure,
//     resolution failure, configuration) plus the Wrap helper that keeps stage
//     context on every error and maps failures to history outcomes.
//
// Subpackages hold the provider clients: llm for chat completions and synth
// for speech and image generation.
package services
