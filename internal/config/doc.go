// Package config loads, normalizes, and validates MediaSolver configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIASOLVER_BRIDGE and MEDIASOLVER_API_TOKEN. The Config type centralizes every knob
// the daemon and CLI need: where the host scripting bridge listens, how long
// each host call may take, and the render defaults applied to pipeline runs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
