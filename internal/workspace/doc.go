// Package workspace creates and locks per-run output directories laid out as
// <output_dir>/<kind>/<slug>-<uuid>, and mirrors a run's logs into run.log
// inside that directory.
package workspace
