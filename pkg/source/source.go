// Package source enumerates environments from the branches of a git
// control repository.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/command"
	"github.com/arthur-debert/envdeploy/pkg/config"
	"github.com/arthur-debert/envdeploy/pkg/environment"
	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/manifest"
	"github.com/arthur-debert/envdeploy/pkg/module"
	"github.com/arthur-debert/envdeploy/pkg/paths"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Options configures a source.
type Options struct {
	Name     string
	Settings config.SourceConfig

	// CacheDir holds the bare mirror of the control repository.
	CacheDir string
	Runner   git.Runner
	FS       types.FS

	Manifest             manifest.Settings
	Modules              module.Options
	GenerateTypesCommand []string
	Executor             *command.Executor
}

// Git is a source whose branches are environments.
type Git struct {
	opts   Options
	mirror *git.Repo
	envs   []*environment.Git
	loaded bool
	logger zerolog.Logger
}

// New creates a source. The mirror is not touched until Preload.
func New(opts Options) *Git {
	mirrorDir := filepath.Join(opts.CacheDir, "sources", paths.SanitizeName(opts.Settings.Remote))
	return &Git{
		opts:   opts,
		mirror: git.Open(mirrorDir, opts.Runner),
		logger: logging.GetLogger("source").With().Str("source", opts.Name).Logger(),
	}
}

func (s *Git) Name() string { return s.opts.Name }

// Basedir is the directory environments are deployed into.
func (s *Git) Basedir() string { return s.opts.Settings.Basedir }

// Remote is the URL of the control repository.
func (s *Git) Remote() string { return s.opts.Settings.Remote }

// Preload refreshes the mirror and enumerates the branches.
func (s *Git) Preload(ctx context.Context) error {
	if err := s.mirror.Mirror(ctx, s.opts.Settings.Remote); err != nil {
		return errors.Wrapf(err, errors.ErrPreload, "failed to fetch source %s", s.opts.Name).
			WithDetail("source", s.opts.Name).
			WithDetail("remote", s.opts.Settings.Remote)
	}
	return s.load(ctx)
}

func (s *Git) load(ctx context.Context) error {
	branches, err := s.mirror.Branches(ctx)
	if err != nil {
		return errors.Wrapf(err, errors.ErrPreload, "failed to list branches of %s", s.opts.Name).
			WithDetail("source", s.opts.Name)
	}

	s.envs = nil
	for _, branch := range branches {
		dirname, ok := s.dirname(branch)
		if !ok {
			continue
		}
		s.envs = append(s.envs, environment.New(environment.Options{
			Branch:               branch,
			Dirname:              dirname,
			Basedir:              s.opts.Settings.Basedir,
			Source:               s.opts.Name,
			Remote:               s.opts.Settings.Remote,
			Mirror:               s.mirror,
			Runner:               s.opts.Runner,
			FS:                   s.opts.FS,
			Manifest:             s.opts.Manifest,
			Modules:              s.opts.Modules,
			GenerateTypesCommand: s.opts.GenerateTypesCommand,
			Executor:             s.opts.Executor,
		}))
	}
	s.loaded = true
	s.logger.Debug().Int("environments", len(s.envs)).Msg("Enumerated environments")
	return nil
}

// dirname applies the ignore prefixes, the invalid branch policy and the
// source prefix. ok is false when the branch is not deployed.
func (s *Git) dirname(branch string) (string, bool) {
	for _, prefix := range s.opts.Settings.IgnoreBranchPrefixes {
		if prefix != "" && strings.HasPrefix(branch, prefix) {
			s.logger.Debug().Str("branch", branch).Str("prefix", prefix).Msg("Ignoring branch")
			return "", false
		}
	}

	name := branch
	if !paths.IsSanitized(branch) {
		switch s.opts.Settings.InvalidBranches {
		case config.InvalidError:
			s.logger.Error().Str("branch", branch).Msg("Branch is not a valid environment name, skipping")
			return "", false
		case config.InvalidCorrect:
			name = paths.SanitizeName(branch)
		default:
			name = paths.SanitizeName(branch)
			s.logger.Warn().Str("branch", branch).Str("environment", name).
				Msg("Branch is not a valid environment name, renaming")
		}
	}

	if prefix := s.opts.Settings.DirPrefix(s.opts.Name); prefix != "" {
		name = prefix + "_" + name
	}
	return name, true
}

// Environments implements types.Source. Before Preload it lists the
// branches of an existing mirror, if any.
func (s *Git) Environments() []types.Environment {
	if !s.loaded && s.mirror.Exists() {
		if err := s.load(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("Cannot enumerate environments")
		}
	}
	out := make([]types.Environment, len(s.envs))
	for i, e := range s.envs {
		out[i] = e
	}
	return out
}
