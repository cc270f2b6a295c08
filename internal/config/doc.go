// Package config loads, normalizes, and validates shelver configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHELVER_LLM_API_KEY. The Config type centralizes every knob the daemon and
// CLI need so the watch, review and quarantine directories and the classifier
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extension sets, and clear validation errors.
package config
