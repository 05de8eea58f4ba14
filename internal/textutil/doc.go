// Package textutil provides text helpers for run directory slugs, file names,
// participant name casing, and short log snippets.
package textutil
