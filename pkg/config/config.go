package config

import (
	"sort"
	"strings"
	"time"
)

// Invalid branch policies
const (
	InvalidCorrectAndWarn = "correct_and_warn"
	InvalidCorrect        = "correct"
	InvalidError          = "error"
)

// SourceConfig describes one control repository whose branches become
// environments.
type SourceConfig struct {
	Remote  string `koanf:"remote"`
	Basedir string `koanf:"basedir"`

	// Prefix is either a bool or a string. true prefixes environment
	// directories with the source name, a string with that string.
	Prefix interface{} `koanf:"prefix"`

	// InvalidBranches is one of correct_and_warn, correct or error.
	InvalidBranches      string   `koanf:"invalid_branches"`
	IgnoreBranchPrefixes []string `koanf:"ignore_branch_prefixes"`
}

// DirPrefix returns the prefix for environment directories of the source
// called name, or "" for none.
func (s SourceConfig) DirPrefix(name string) string {
	switch v := s.Prefix.(type) {
	case bool:
		if v {
			return name
		}
	case string:
		switch strings.ToLower(v) {
		case "", "false":
			return ""
		case "true":
			return name
		}
		return v
	}
	return ""
}

// DeployConfig holds the options of the deploy action.
type DeployConfig struct {
	PurgeLevels          []string `koanf:"purge_levels"`
	PurgeAllowlist       []string `koanf:"purge_allowlist"`
	PurgeWhitelist       []string `koanf:"purge_whitelist"`
	GenerateTypes        bool     `koanf:"generate_types"`
	GenerateTypesCommand Command  `koanf:"generate_types_command"`
	WriteLock            string   `koanf:"write_lock"`
	ModuleWorkers        int      `koanf:"module_workers"`
}

// ManifestConfig controls how module declarations are found.
type ManifestConfig struct {
	Filenames []string `koanf:"filenames"`
	Moduledir string   `koanf:"moduledir"`
}

// RegistryConfig configures the module registry client.
type RegistryConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Retries int           `koanf:"retries"`
	Timeout time.Duration `koanf:"timeout"`
}

// Config is the main configuration structure
type Config struct {
	CacheDir string                  `koanf:"cachedir"`
	Sources  map[string]SourceConfig `koanf:"sources"`
	Deploy   DeployConfig            `koanf:"deploy"`
	Manifest ManifestConfig          `koanf:"manifest"`
	Registry RegistryConfig          `koanf:"registry"`
	Postrun  Command                 `koanf:"postrun"`

	// File is the settings file that was loaded, if any.
	File string `koanf:"-"`
}

// SourceNames returns the configured source names, sorted.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
