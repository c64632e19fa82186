package environment

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/command"
	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/manifest"
	"github.com/arthur-debert/envdeploy/pkg/module"
	"github.com/arthur-debert/envdeploy/pkg/paths"
	"github.com/arthur-debert/envdeploy/pkg/purge"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Tokens substituted in the type generation command
const (
	TokenEnvironment     = "$environment"
	TokenEnvironmentPath = "$environmentpath"
)

// Options describes one environment.
type Options struct {
	// Branch is the source branch the environment is built from.
	Branch string

	// Dirname is the sanitized, possibly prefixed directory name.
	Dirname string
	Basedir string

	// Source and Remote identify where the branch comes from.
	Source string
	Remote string

	// Mirror is the source's cache mirror the checkout is cloned from.
	Mirror *git.Repo
	Runner git.Runner
	FS     types.FS

	Manifest manifest.Settings

	// Modules is the template for the modules of the environment. Branch
	// is filled in from the environment.
	Modules module.Options

	GenerateTypesCommand []string
	Executor             *command.Executor
}

// Git is an environment checked out from a branch of a git source.
type Git struct {
	opts      Options
	path      string
	work      *git.Repo
	manifest  *manifest.Manifest
	signature string
	logger    zerolog.Logger
}

// New creates the environment. Nothing is read or written until it is
// used.
func New(opts Options) *Git {
	path := filepath.Join(opts.Basedir, opts.Dirname)
	modOpts := opts.Modules
	modOpts.Branch = opts.Branch

	e := &Git{
		opts:     opts,
		path:     path,
		work:     git.Open(path, opts.Runner),
		manifest: manifest.New(opts.FS, path, opts.Manifest, modOpts),
		logger: logging.GetLogger("environment").With().
			Str("environment", opts.Dirname).
			Logger(),
	}
	return e
}

func (e *Git) Name() string    { return e.opts.Branch }
func (e *Git) Dirname() string { return e.opts.Dirname }
func (e *Git) Path() string    { return e.path }

// Source returns the name of the source providing the environment.
func (e *Git) Source() string { return e.opts.Source }

// Signature implements types.Environment. It is the checked out commit,
// or "" before the first sync.
func (e *Git) Signature() string {
	if e.signature == "" && e.work.Exists() {
		if head, err := e.work.Head(context.Background()); err == nil {
			e.signature = head
		}
	}
	return e.signature
}

// Status implements types.Environment.
func (e *Git) Status() types.Status {
	ctx := context.Background()
	if _, err := os.Stat(e.path); err != nil {
		return types.StatusAbsent
	}
	if !e.work.Exists() {
		return types.StatusMismatched
	}
	if origin, err := e.work.RemoteURL(ctx, "origin"); err != nil || origin != e.opts.Mirror.Dir {
		return types.StatusMismatched
	}
	want, err := e.opts.Mirror.Resolve(ctx, e.opts.Branch)
	if err != nil {
		return types.StatusOutdated
	}
	if head, err := e.work.Head(ctx); err != nil || head != want {
		return types.StatusOutdated
	}
	return types.StatusInSync
}

// Sync implements types.Environment. The checkout is forced to the tip of
// the branch; untracked content is left for the purge.
func (e *Git) Sync(ctx context.Context) error {
	status := e.Status()
	e.logger.Debug().Str("status", string(status)).Msg("Syncing environment")

	want, err := e.opts.Mirror.Resolve(ctx, e.opts.Branch)
	if err != nil {
		return e.syncError(err, "branch %s not found in %s", e.opts.Branch, e.opts.Remote)
	}

	switch status {
	case types.StatusMismatched:
		e.logger.Warn().Str("path", e.path).Msg("Replacing content that is not a checkout of this environment")
		if err := os.RemoveAll(e.path); err != nil {
			return e.syncError(err, "failed to remove %s", e.path)
		}
		fallthrough
	case types.StatusAbsent:
		if err := e.work.Clone(ctx, e.opts.Mirror.Dir, e.opts.Branch); err != nil {
			return e.syncError(err, "failed to clone %s", e.opts.Branch)
		}
	default:
		if _, err := e.work.Run(ctx, "fetch", "--prune", "origin"); err != nil {
			return e.syncError(err, "failed to fetch %s", e.opts.Branch)
		}
	}

	if _, err := e.work.Run(ctx, "checkout", "--quiet", "--force", "-B", e.opts.Branch, want); err != nil {
		return e.syncError(err, "failed to check out %s", want)
	}

	e.signature = want
	e.manifest.Invalidate()
	e.logger.Info().Str("signature", want).Msg("Environment synced")
	return nil
}

func (e *Git) syncError(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, errors.ErrEnvSync, format, args...).
		WithDetail("environment", e.opts.Dirname).
		WithDetail("path", e.path)
}

// Manifest implements types.Environment. It is returned even when the
// environment has no Deployfile, so undeclared modules are still purged.
func (e *Git) Manifest() types.Manifest {
	return e.manifest
}

// Modules implements types.Environment. The Deployfile is read if the
// engine has not loaded it since the last sync.
func (e *Git) Modules() ([]types.Module, error) {
	return e.manifest.Declared()
}

// Allowlist implements types.Environment. Patterns are anchored at the
// environment path.
func (e *Git) Allowlist(user []string) []string {
	out := make([]string, 0, len(user))
	for _, pattern := range user {
		out = append(out, filepath.Join(e.path, pattern))
	}
	return out
}

// Purge implements types.Environment. Tracked files, the git directory,
// declared modules and the deploy record are kept, as is anything matched
// by the allowlist.
func (e *Git) Purge(opts types.PurgeOptions) error {
	ctx := context.Background()
	tracked, err := e.work.TrackedPaths(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrPurge, "cannot list tracked files").
			WithDetail("environment", e.opts.Dirname)
	}

	gitDir := filepath.Join(e.path, ".git")
	desired := []string{gitDir, filepath.Join(e.path, paths.RecordFileName)}
	noRecurse := []string{gitDir}
	for _, rel := range tracked {
		desired = append(desired, filepath.Join(e.path, filepath.FromSlash(rel)))
	}

	// Without the declaration every module would look unmanaged
	mods, err := e.Modules()
	if err != nil {
		return errors.Wrap(err, errors.ErrPurge, "cannot purge environment without a readable Deployfile").
			WithDetail("environment", e.opts.Dirname)
	}
	for _, m := range mods {
		desired = append(desired, m.Path())
		noRecurse = append(noRecurse, m.Path())
	}

	removed, err := purge.New(e.opts.FS).Purge(purge.Plan{
		Root:      e.path,
		Desired:   desired,
		NoRecurse: noRecurse,
		Allowlist: opts.Allowlist,
		Recurse:   opts.Recurse,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrPurge, "failed to purge environment").
			WithDetail("environment", e.opts.Dirname)
	}
	e.logger.Info().Int("removed", len(removed)).Msg("Purged unmanaged content")
	return nil
}

// GenerateTypes implements types.Environment.
func (e *Git) GenerateTypes(ctx context.Context) error {
	if len(e.opts.GenerateTypesCommand) == 0 {
		return errors.New(errors.ErrGenerateTypes, "no type generation command configured")
	}
	argv := make([]string, len(e.opts.GenerateTypesCommand))
	for i, arg := range e.opts.GenerateTypesCommand {
		arg = strings.ReplaceAll(arg, TokenEnvironmentPath, e.opts.Basedir)
		argv[i] = strings.ReplaceAll(arg, TokenEnvironment, e.opts.Dirname)
	}

	executor := e.opts.Executor
	if executor == nil {
		executor = command.NewExecutor("environment")
	}
	if _, err := executor.Run(ctx, command.Command{Argv: argv, Dir: e.path, Code: errors.ErrGenerateTypes}); err != nil {
		return err
	}
	e.logger.Info().Msg("Generated types")
	return nil
}

// Info implements types.Environment.
func (e *Git) Info() map[string]interface{} {
	return map[string]interface{}{
		"name":      e.opts.Branch,
		"signature": e.Signature(),
		"source":    e.opts.Source,
		"branch":    e.opts.Branch,
		"remote":    e.opts.Remote,
	}
}
