// Package logs reads the per-run JSON log that every run directory carries.
//
// Tail returns the last lines of a log or the lines after a saved offset and
// can poll for new output, which powers `contentmill runs logs --follow`.
// Parse and Format turn the JSON records back into one-line summaries.
package logs
