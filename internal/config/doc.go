// Package config loads, normalizes, and validates content-mill configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENAI_API_KEY. The Config type centralizes every knob the
// CLI needs, from output directories to image retry ceilings and roundtable
// turn limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
