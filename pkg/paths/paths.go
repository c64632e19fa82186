package paths

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvConfig points at the settings file
	EnvConfig = "ENVDEPLOY_CONFIG"

	// EnvCacheDir overrides the XDG cache directory for envdeploy
	EnvCacheDir = "ENVDEPLOY_CACHE_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Fixed names. These are part of the on-disk layout and are not
// user-configurable.
const (
	// AppDirName is the directory name used below the XDG base directories
	AppDirName = "envdeploy"

	// LockFileName is the name of the write lock file inside the cache dir
	LockFileName = "deploy.lock"

	// LogFileName is the name of the log file
	LogFileName = "envdeploy.log"

	// RecordFileName is the deploy record kept at the root of every
	// environment. The name is shared with r10k so existing tooling that
	// reads it keeps working.
	RecordFileName = ".r10k-deploy.json"
)

// SettingsFileNames are looked up, in order, in the working directory and
// then in the XDG config directory.
var SettingsFileNames = []string{"envdeploy.yaml", "envdeploy.yml", "envdeploy.toml"}

var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeName replaces every character that is not a letter, a digit or
// an underscore with an underscore. Branch names and requested environment
// names both go through it before being compared.
func SanitizeName(name string) string {
	return nonIdentifier.ReplaceAllString(name, "_")
}

// IsSanitized reports whether name is unchanged by SanitizeName.
func IsSanitized(name string) bool {
	return !nonIdentifier.MatchString(name)
}

// CacheDir returns the directory for source mirrors and the write lock.
func CacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return ExpandHome(dir)
	}
	return filepath.Join(xdg.CacheHome, AppDirName)
}

// ConfigDir returns the XDG config directory for envdeploy.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppDirName)
}

// StateDir returns the XDG state directory for envdeploy.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppDirName)
}

// LockPath returns the write lock location for a cache directory.
func LockPath(cacheDir string) string {
	return filepath.Join(cacheDir, LockFileName)
}

// FindSettingsFile returns the first settings file found in the working
// directory or the config directory, or "" when there is none.
func FindSettingsFile() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return ExpandHome(path)
	}

	for _, dir := range []string{".", ConfigDir()} {
		for _, name := range SettingsFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~user is not supported
	return path
}
