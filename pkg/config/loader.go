package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read as a setting.
const EnvPrefix = "ENVDEPLOY_"

// LoadOptions controls where settings come from.
type LoadOptions struct {
	// File is an explicit settings file. When empty the file is looked up
	// with paths.FindSettingsFile.
	File string

	// Overrides are applied last, keyed by dotted setting path, e.g.
	// "deploy.generate_types".
	Overrides map[string]interface{}
}

// Load reads and validates the settings.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Settings file
	settingsFile := opts.File
	if settingsFile == "" {
		settingsFile = paths.FindSettingsFile()
	} else {
		settingsFile = paths.ExpandHome(settingsFile)
		if _, err := os.Stat(settingsFile); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "settings file %s not readable", settingsFile)
		}
	}
	if settingsFile != "" {
		parser, err := parserFor(settingsFile)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(settingsFile), parser); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load settings from %s", settingsFile)
		}
		logger.Debug().Str("file", settingsFile).Msg("Loaded settings file")
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Command-line overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load overrides")
		}
	}

	cfg, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	cfg.File = settingsFile

	if cfg.CacheDir == "" {
		cfg.CacheDir = paths.CacheDir()
	} else {
		cfg.CacheDir = paths.ExpandHome(cfg.CacheDir)
	}
	for name, src := range cfg.Sources {
		src.Basedir = paths.ExpandHome(src.Basedir)
		if src.InvalidBranches == "" {
			src.InvalidBranches = InvalidCorrectAndWarn
		}
		cfg.Sources[name] = src
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       decodeHook(),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to unmarshal configuration")
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	}
	return nil, errors.Newf(errors.ErrConfigLoad, "unsupported settings file type: %s", path).
		WithDetail("file", path)
}

// envKey maps ENVDEPLOY_DEPLOY_WRITE_LOCK to deploy.write_lock. Only the
// first underscore separates the section from the key. Variables that are
// not settings are dropped.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	switch key {
	case "config", "cache_dir":
		return ""
	}
	if section, rest, found := strings.Cut(key, "_"); found {
		switch section {
		case "deploy", "manifest", "registry":
			return section + "." + rest
		}
	}
	return key
}
