// Package deployment aggregates the configured sources: it preloads them,
// checks the environments they provide can coexist, and removes
// environments no source provides anymore.
package deployment

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/purge"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Source is a source the deployment can preload and purge for.
type Source interface {
	types.Source
	Preload(ctx context.Context) error
	Basedir() string
}

// Deployment is the aggregate root over all sources.
type Deployment struct {
	sources []Source
	fs      types.FS
	logger  zerolog.Logger
}

// New creates a deployment over sources, in the given order.
func New(fsys types.FS, sources ...Source) *Deployment {
	return &Deployment{
		sources: sources,
		fs:      fsys,
		logger:  logging.GetLogger("deployment"),
	}
}

// Preload implements types.Deployment. Every source is attempted; any
// failure fails the preload.
func (d *Deployment) Preload(ctx context.Context) error {
	var failures []error
	for _, src := range d.sources {
		if err := src.Preload(ctx); err != nil {
			d.logger.Error().Err(err).Str("source", src.Name()).Msg("Failed to preload source")
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return errors.Wrapf(stderrors.Join(failures...), errors.ErrPreload,
			"failed to preload %d source(s)", len(failures))
	}
	return nil
}

// Validate implements types.Deployment. Two environments may not deploy
// into the same directory.
func (d *Deployment) Validate() error {
	owners := make(map[string][]string)
	for _, src := range d.sources {
		for _, env := range src.Environments() {
			owners[env.Path()] = append(owners[env.Path()], src.Name()+":"+env.Name())
		}
	}

	var collisions []string
	for path, names := range owners {
		if len(names) > 1 {
			collisions = append(collisions, path+" ("+strings.Join(names, ", ")+")")
		}
	}
	if len(collisions) > 0 {
		sort.Strings(collisions)
		return errors.Newf(errors.ErrValidate, "environments collide: %s", strings.Join(collisions, "; ")).
			WithDetail("collisions", collisions)
	}
	return nil
}

// Sources implements types.Deployment.
func (d *Deployment) Sources() []types.Source {
	out := make([]types.Source, len(d.sources))
	for i, s := range d.sources {
		out[i] = s
	}
	return out
}

// Environments implements types.Deployment.
func (d *Deployment) Environments() []types.Environment {
	var out []types.Environment
	for _, src := range d.sources {
		out = append(out, src.Environments()...)
	}
	return out
}

// Basedirs returns the distinct deploy directories, sorted.
func (d *Deployment) Basedirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, src := range d.sources {
		dir := filepath.Clean(src.Basedir())
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// Purge implements types.Deployment. Anything in a base directory that is
// not an environment of some source is removed. Sources sharing a base
// directory protect each other's environments.
func (d *Deployment) Purge() error {
	desired := make(map[string][]string)
	for _, src := range d.sources {
		dir := filepath.Clean(src.Basedir())
		for _, env := range src.Environments() {
			desired[dir] = append(desired[dir], env.Path())
		}
	}

	purger := purge.New(d.fs)
	var failures []error
	for _, dir := range d.Basedirs() {
		removed, err := purger.Purge(purge.Plan{Root: dir, Desired: desired[dir], NoRecurse: desired[dir]})
		if err != nil {
			failures = append(failures, err)
			continue
		}
		for _, path := range removed {
			d.logger.Info().Str("path", path).Msg("Removed stale environment")
		}
	}
	if len(failures) > 0 {
		return errors.Wrap(stderrors.Join(failures...), errors.ErrPurge, "failed to purge stale environments")
	}
	return nil
}
