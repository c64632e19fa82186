// Package config handles configuration management for envdeploy.
// It loads settings from embedded defaults, a YAML or TOML settings file,
// ENVDEPLOY_* environment variables and command-line overrides, in that
// order, and validates them before anything touches the filesystem.
package config
