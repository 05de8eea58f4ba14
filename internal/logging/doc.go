// Package logging assembles structured slog loggers and formatting helpers used
// across content-mill.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stages, turn indexes, and speakers. NewFileHandler
// opens the debug-level JSON file a run mirrors its lines into. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
