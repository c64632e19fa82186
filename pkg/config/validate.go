package config

import (
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
)

// PurgeLevel is a granularity at which unmanaged content is removed.
type PurgeLevel string

const (
	PurgeDeployment  PurgeLevel = "deployment"
	PurgeEnvironment PurgeLevel = "environment"
	PurgeManifest    PurgeLevel = "manifest"
)

// purgeLevelAliases maps accepted spellings to levels.
var purgeLevelAliases = map[string]PurgeLevel{
	"deployment":  PurgeDeployment,
	"environment": PurgeEnvironment,
	"manifest":    PurgeManifest,
	"puppetfile":  PurgeManifest,
}

// PurgeLevels is a set of enabled purge levels.
type PurgeLevels map[PurgeLevel]bool

// Has reports whether level is enabled.
func (p PurgeLevels) Has(level PurgeLevel) bool {
	return p[level]
}

// ParsePurgeLevels resolves level names, accepting puppetfile as an alias
// of manifest.
func ParsePurgeLevels(names []string) (PurgeLevels, error) {
	levels := PurgeLevels{}
	for _, name := range names {
		level, ok := purgeLevelAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Newf(errors.ErrConfigInvalid, "unknown purge level %q", name).
				WithDetail("level", name)
		}
		levels[level] = true
	}
	return levels, nil
}

// ResolveAllowlist merges the allowlist with its deprecated whitelist
// spelling. Both being non-empty is a configuration error.
func ResolveAllowlist(allowlist, whitelist []string) ([]string, error) {
	if len(allowlist) > 0 && len(whitelist) > 0 {
		return nil, errors.New(errors.ErrConfigConflict,
			"purge_whitelist and purge_allowlist cannot both be set; purge_whitelist is deprecated, use purge_allowlist").
			WithDetail("purge_allowlist", allowlist).
			WithDetail("purge_whitelist", whitelist)
	}
	if len(whitelist) > 0 {
		logger := logging.GetLogger("config")
		logger.Warn().
			Strs("purge_whitelist", whitelist).
			Msg("purge_whitelist is deprecated, use purge_allowlist")
		return whitelist, nil
	}
	return allowlist, nil
}

// Validate checks the settings before anything is mutated.
func (c *Config) Validate() error {
	if _, err := ResolveAllowlist(c.Deploy.PurgeAllowlist, c.Deploy.PurgeWhitelist); err != nil {
		return err
	}
	if _, err := ParsePurgeLevels(c.Deploy.PurgeLevels); err != nil {
		return err
	}
	if c.Deploy.ModuleWorkers < 0 {
		return errors.Newf(errors.ErrConfigInvalid, "deploy.module_workers must not be negative, got %d", c.Deploy.ModuleWorkers)
	}
	if c.Deploy.GenerateTypes && c.Deploy.GenerateTypesCommand.IsEmpty() {
		return errors.New(errors.ErrConfigInvalid, "deploy.generate_types is set but deploy.generate_types_command is empty")
	}
	if len(c.Manifest.Filenames) == 0 || c.Manifest.Moduledir == "" {
		return errors.New(errors.ErrConfigInvalid, "manifest.filenames and manifest.moduledir must be set")
	}

	if len(c.Sources) == 0 {
		return errors.New(errors.ErrConfigInvalid, "no sources configured").
			WithDetail("file", c.File)
	}
	for _, name := range c.SourceNames() {
		src := c.Sources[name]
		if src.Remote == "" || src.Basedir == "" {
			return errors.Newf(errors.ErrConfigInvalid, "source %q needs both remote and basedir", name).
				WithDetail("source", name)
		}
		switch src.InvalidBranches {
		case InvalidCorrectAndWarn, InvalidCorrect, InvalidError:
		default:
			return errors.Newf(errors.ErrConfigInvalid, "source %q: unknown invalid_branches policy %q", name, src.InvalidBranches).
				WithDetail("source", name)
		}
	}
	return nil
}
