// Package services defines shared utilities consumed by the pipeline
// components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp file paths, pipeline stages, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell setup
//     failures from relocation failures without string matching.
//
// Use these helpers when wiring new pipeline code so error handling and
// observability stay uniform.
package services
