// Package ffprobe reads the stream and container metadata that assembly
// needs from narration clips and stills: a clip's duration and a still's
// frame size.
//
// Inspect runs the configured ffprobe binary and decodes its JSON report.
package ffprobe
