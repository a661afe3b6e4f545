// Package config loads, normalizes, and validates Stagehand configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OBS_WEBSOCKET_PASSWORD. The Config type centralizes every knob the daemon
// and CLI need: directories, platform credentials, the encoder endpoint, and
// the scheduling cadences.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
