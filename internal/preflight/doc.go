// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths content-mill depends on.
//
// These checks run in two contexts:
//   - Generation commands call RunAll before the first paid API call so a
//     missing ffmpeg or a full disk is reported before any money is spent.
//   - The CLI "contentmill doctor" command runs every check and prints a table.
package preflight
