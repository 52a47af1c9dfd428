// Package config loads, normalizes, and validates marquee configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and YOUTUBE_API_KEY. Always obtain settings through this package
// so downstream code receives sanitized paths and clear validation errors.
package config
