// Package notifications publishes run outcomes to ntfy.
//
// The topic comes from the [notifications] section of config.toml; with no
// topic configured NewService returns a no-op, so callers never check whether
// alerts are enabled before sending.
package notifications
