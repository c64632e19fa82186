package module

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/registry"
	"github.com/arthur-debert/envdeploy/pkg/types"
)

// ControlBranch as a git ref means "the branch of the environment".
const ControlBranch = "$control_branch"

// Spec is one module declaration.
type Spec struct {
	Name string
	Kind types.ModuleKind

	// Version of a registry module: an exact version, "latest", or empty
	// to install the current release once and keep it.
	Version string

	// Git remote and ref of a git module. Ref may be ControlBranch.
	Git           string
	Ref           string
	DefaultBranch string

	// InstallPath overrides the module directory, relative to the
	// environment path.
	InstallPath string
}

// Registry is what registry modules need from a registry client.
type Registry interface {
	Latest(ctx context.Context, name string) (*registry.Release, error)
	Release(ctx context.Context, name, version string) (*registry.Release, error)
	Install(ctx context.Context, rel *registry.Release, dest string) error
}

// Options carries what modules of one environment share.
type Options struct {
	// Moduledir is the absolute default install directory.
	Moduledir string

	// EnvPath is the environment checkout, the base of InstallPath.
	EnvPath string

	// Branch is the environment's source branch, the target of
	// ControlBranch refs.
	Branch string

	// BranchOverride is tried when a git ref cannot be resolved.
	BranchOverride string

	Cache    *GitCache
	Registry Registry
	Runner   git.Runner
}

// ShortName is the directory name of a module: the part after the owner
// in "owner/name" or "owner-name".
func ShortName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	if _, rest, found := strings.Cut(name, "-"); found && rest != "" {
		return rest
	}
	return name
}

// New builds the module declared by spec.
func New(spec Spec, opts Options) (types.Module, error) {
	if spec.Name == "" {
		return nil, errors.New(errors.ErrInvalidInput, "module declaration without a name")
	}

	path := filepath.Join(opts.Moduledir, ShortName(spec.Name))
	if spec.InstallPath != "" {
		base := spec.InstallPath
		if !filepath.IsAbs(base) {
			base = filepath.Join(opts.EnvPath, base)
		}
		path = filepath.Join(base, ShortName(spec.Name))
	}

	switch spec.Kind {
	case types.ModuleKindGit:
		if spec.Git == "" {
			return nil, errors.Newf(errors.ErrInvalidInput, "git module %s has no remote", spec.Name).
				WithDetail("module", spec.Name)
		}
		return newGitModule(spec, path, opts), nil
	case types.ModuleKindForge, "":
		spec.Kind = types.ModuleKindForge
		return newForgeModule(spec, path, opts), nil
	case types.ModuleKindLocal:
		return newLocalModule(spec, path), nil
	}
	return nil, errors.Newf(errors.ErrInvalidInput, "module %s has unknown kind %q", spec.Name, spec.Kind).
		WithDetail("module", spec.Name)
}

func syncError(err error, spec Spec, format string, args ...interface{}) error {
	return errors.Wrapf(err, errors.ErrModuleSync, format, args...).
		WithDetail("module", spec.Name).
		WithDetail("origin", string(spec.Kind))
}
