// Package paths provides centralized path handling for envdeploy.
// It resolves XDG base directories for the cache, config and state files
// and owns the name sanitization that turns branch names into environment
// directory names.
package paths
