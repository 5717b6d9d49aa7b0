// Package config loads, normalizes, and validates plaques2gallery configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as GOOGLE_API_KEY and LLM_API_KEY. The Config type
// centralizes every knob the pipeline and CLI need: directories, quota window,
// search credentials, normalizer model settings, OCR tuning, and the image
// resolver heuristics (area threshold, trust domains, consent patterns).
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, parsed durations, and clear validation errors.
package config
