package types

import (
	"context"
	"io/fs"
)

// FS is the filesystem interface required for deploy operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// WriteFileAtomic writes data to a temporary file beside name and
	// renames it into place, so readers never observe a partial write.
	WriteFileAtomic(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
}

// Module is a single versioned content unit synced into an environment.
type Module interface {
	// Name is the declared module name, e.g. "puppetlabs/stdlib".
	Name() string

	// Origin is the provenance kind of the module.
	Origin() ModuleKind

	// Path is where the module is installed.
	Path() string

	// Sync brings the installed module to its expected version. When force
	// is set local modifications are overwritten.
	Sync(ctx context.Context, force bool) error

	// Properties reports the expected and actual versions.
	Properties() (ModuleProperties, error)
}

// Manifest is a per-environment declaration of desired modules.
type Manifest interface {
	// Load parses the declaration. branchOverride is used by modules that
	// track the environment branch when that branch is unavailable.
	Load(branchOverride string) error

	// Modules returns the declared modules in declaration order. It is
	// empty until Load succeeds.
	Modules() []Module

	// Purge removes module directories that are no longer declared.
	Purge() error
}

// PurgeOptions controls an environment purge.
type PurgeOptions struct {
	// Recurse descends into managed directories to remove unmanaged
	// content below them.
	Recurse bool

	// Allowlist holds glob patterns of content that is never removed.
	Allowlist []string
}

// Environment is one deployable unit, one branch worth of content.
type Environment interface {
	// Name is the unsanitized source name, usually a branch.
	Name() string

	// Dirname is the sanitized directory name and the identity of the
	// environment.
	Dirname() string

	// Path is the full path of the environment checkout.
	Path() string

	// Signature is the content fingerprint, e.g. a commit id.
	Signature() string

	Status() Status
	Sync(ctx context.Context) error

	// Manifest returns the environment's module declaration, or nil when
	// the environment declares none.
	Manifest() Manifest

	// Modules enumerates the modules currently known to the environment.
	Modules() ([]Module, error)

	Purge(opts PurgeOptions) error

	// Allowlist turns user patterns into the patterns applied when purging
	// this environment.
	Allowlist(user []string) []string

	GenerateTypes(ctx context.Context) error

	// Info is environment-supplied metadata merged into the deploy record.
	Info() map[string]interface{}
}

// Source enumerates the environments it currently provides.
type Source interface {
	Name() string
	Environments() []Environment
}

// Deployment is the aggregate root over all sources.
type Deployment interface {
	// Preload fetches everything needed to enumerate environments.
	Preload(ctx context.Context) error

	// Validate checks the enumerated environments are consistent.
	Validate() error

	Sources() []Source
	Environments() []Environment

	// Purge removes environments no source declares anymore.
	Purge() error
}
