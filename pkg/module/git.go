package module

import (
	"context"
	"os"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// GitModule is a module checked out from a git repository.
type GitModule struct {
	spec   Spec
	path   string
	opts   Options
	logger zerolog.Logger
}

func newGitModule(spec Spec, path string, opts Options) *GitModule {
	return &GitModule{
		spec: spec,
		path: path,
		opts: opts,
		logger: logging.GetLogger("module").With().
			Str("module", spec.Name).
			Str("origin", string(types.ModuleKindGit)).
			Logger(),
	}
}

func (m *GitModule) Name() string             { return m.spec.Name }
func (m *GitModule) Origin() types.ModuleKind { return types.ModuleKindGit }
func (m *GitModule) Path() string             { return m.path }

// wantedRef is the declared ref with ControlBranch substituted.
func (m *GitModule) wantedRef() string {
	switch m.spec.Ref {
	case ControlBranch:
		return m.opts.Branch
	case "":
		return "HEAD"
	}
	return m.spec.Ref
}

// resolve finds the commit to check out, falling back to the branch
// override and then to the module's default branch.
func (m *GitModule) resolve(ctx context.Context, mirror *git.Repo) (string, error) {
	candidates := []string{m.wantedRef(), m.opts.BranchOverride, m.spec.DefaultBranch}
	var tried []string
	for i, ref := range candidates {
		if ref == "" {
			continue
		}
		tried = append(tried, ref)
		if sha, err := mirror.Resolve(ctx, ref); err == nil && sha != "" {
			if i > 0 {
				m.logger.Warn().
					Str("wanted", m.wantedRef()).
					Str("using", ref).
					Msg("Ref not found in module repository, using fallback")
			}
			return sha, nil
		}
	}
	return "", errors.Newf(errors.ErrModuleSync, "none of %v could be resolved in %s", tried, m.spec.Git).
		WithDetail("module", m.spec.Name).
		WithDetail("origin", string(types.ModuleKindGit))
}

// Sync implements types.Module. Without force, a checkout with local
// modifications or of another repository is left alone.
func (m *GitModule) Sync(ctx context.Context, force bool) error {
	mirror, err := m.opts.Cache.Mirror(ctx, m.spec.Git)
	if err != nil {
		return syncError(err, m.spec, "failed to update cache for %s", m.spec.Git)
	}
	sha, err := m.resolve(ctx, mirror)
	if err != nil {
		return err
	}

	work := git.Open(m.path, m.opts.Runner)
	if _, statErr := os.Stat(m.path); statErr == nil {
		origin := ""
		if work.Exists() {
			origin, _ = work.RemoteURL(ctx, "origin")
		}
		if origin != mirror.Dir {
			if !force {
				m.logger.Warn().Str("path", m.path).Msg("Skipping module: path is not a checkout of its repository")
				return nil
			}
			if err := os.RemoveAll(m.path); err != nil {
				return syncError(err, m.spec, "failed to replace %s", m.path)
			}
		}
	}

	if !work.Exists() {
		if err := work.Clone(ctx, mirror.Dir, ""); err != nil {
			return syncError(err, m.spec, "failed to clone %s", m.spec.Git)
		}
	} else {
		if dirty, err := work.Dirty(ctx); err == nil && dirty && !force {
			m.logger.Warn().Str("path", m.path).Msg("Skipping module due to local modifications")
			return nil
		}
		if _, err := work.Run(ctx, "fetch", "--prune", "--tags", "origin"); err != nil {
			return syncError(err, m.spec, "failed to fetch %s", m.spec.Git)
		}
	}

	if head, err := work.Head(ctx); err == nil && head == sha && !force {
		return nil
	}
	args := []string{"checkout", "--quiet", "--detach"}
	if force {
		args = append(args, "--force")
	}
	if _, err := work.Run(ctx, append(args, sha)...); err != nil {
		return syncError(err, m.spec, "failed to check out %s", sha)
	}
	m.logger.Info().Str("ref", m.wantedRef()).Str("sha", sha).Msg("Module synced")
	return nil
}

// Properties implements types.Module. Actual is the checked out commit.
func (m *GitModule) Properties() (types.ModuleProperties, error) {
	props := types.ModuleProperties{Kind: types.ModuleKindGit, Expected: m.wantedRef()}
	work := git.Open(m.path, m.opts.Runner)
	if !work.Exists() {
		return props, nil
	}
	head, err := work.Head(context.Background())
	if err != nil {
		return props, err
	}
	props.Actual = head
	return props, nil
}
