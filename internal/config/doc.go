// Package config loads, normalizes, and validates Stencil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ORDER_SOURCE_API_KEY and OPENAI_API_KEY. The Config type centralizes every
// knob the daemon and CLI need, from store SKU scopes and color maps to stage
// scheduling intervals and driver handoff paths.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
