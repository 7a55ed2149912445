// Package config loads, normalizes, and validates commissions configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COMMISSIONS_IMAGES_DIR. The Config type centralizes every knob the CLI, the
// admin API, and the image pipeline need so asset and database locations are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
