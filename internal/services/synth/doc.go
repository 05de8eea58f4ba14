// Package synth wraps the OpenAI speech and image endpoints.
//
// Speech writes an mp3 narration clip for a line of text in one of the six
// fixed voices. Image writes a generated still for a description, decoding the
// base64 payload or downloading the returned URL. Both write atomically so a
// failed call never leaves a partial file that assembly could pick up.
//
// Retry and prompt rephrasing policy lives with the caller (internal/render);
// this package makes exactly one provider call per invocation.
package synth
