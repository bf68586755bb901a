// Package config loads, normalizes, and validates shelfsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHELFSORT_LLM_API_KEY and GOOGLE_BOOKS_API_KEY (optionally sourced from a
// .env file). The Config type centralizes every knob the CLI and pipeline
// need, so the resolver, cover, placement and tagging components receive it
// explicitly instead of reading ambient state.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extensions, and clear validation errors.
package config
