package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

const headsPrefix = "refs/heads/"

// Repo is a repository on disk, either a working tree or a bare mirror.
type Repo struct {
	Dir    string
	runner Runner
}

// Open returns a Repo for dir. The directory does not need to exist yet.
func Open(dir string, runner Runner) *Repo {
	return &Repo{Dir: dir, runner: runner}
}

// Run executes a git command inside the repository.
func (r *Repo) Run(ctx context.Context, args ...string) (string, error) {
	return r.runner.Run(ctx, r.Dir, args...)
}

// Exists reports whether Dir holds a working tree or a bare repository.
func (r *Repo) Exists() bool {
	if info, err := os.Stat(filepath.Join(r.Dir, ".git")); err == nil && info != nil {
		return true
	}
	// Bare repositories keep HEAD and objects at the top level
	_, headErr := os.Stat(filepath.Join(r.Dir, "HEAD"))
	_, objErr := os.Stat(filepath.Join(r.Dir, "objects"))
	return headErr == nil && objErr == nil
}

// Mirror creates or refreshes a bare mirror of remote in Dir.
func (r *Repo) Mirror(ctx context.Context, remote string) error {
	if !r.Exists() {
		if err := os.MkdirAll(filepath.Dir(r.Dir), 0755); err != nil {
			return err
		}
		_, err := r.runner.Run(ctx, "", "clone", "--mirror", remote, r.Dir)
		return err
	}
	if _, err := r.Run(ctx, "remote", "set-url", "origin", remote); err != nil {
		return err
	}
	_, err := r.Run(ctx, "fetch", "--prune", "origin")
	return err
}

// Clone creates a working tree in Dir from src, checking out branch.
func (r *Repo) Clone(ctx context.Context, src, branch string) error {
	if err := os.MkdirAll(filepath.Dir(r.Dir), 0755); err != nil {
		return err
	}
	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, src, r.Dir)
	_, err := r.runner.Run(ctx, "", args...)
	return err
}

// Head returns the checked out commit.
func (r *Repo) Head(ctx context.Context) (string, error) {
	return r.Resolve(ctx, "HEAD")
}

// Resolve turns a ref, tag or abbreviated commit into a full commit id.
func (r *Repo) Resolve(ctx context.Context, rev string) (string, error) {
	return r.Run(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
}

// Branches lists local branch names, which in a mirror are the remote's
// branches.
func (r *Repo) Branches(ctx context.Context) ([]string, error) {
	out, err := r.Run(ctx, "for-each-ref", "--format=%(refname)", headsPrefix)
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		branches = append(branches, strings.TrimPrefix(line, headsPrefix))
	}
	return branches, nil
}

// HasBranch reports whether the repository has a local branch name.
func (r *Repo) HasBranch(ctx context.Context, name string) bool {
	_, err := r.Run(ctx, "show-ref", "--verify", "--quiet", headsPrefix+name)
	return err == nil
}

// TrackedPaths lists the paths tracked in the working tree, relative to Dir.
func (r *Repo) TrackedPaths(ctx context.Context) ([]string, error) {
	out, err := r.Run(ctx, "ls-files")
	if err != nil {
		return nil, err
	}
	var tracked []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tracked = append(tracked, line)
		}
	}
	return tracked, nil
}

// Dirty reports whether the working tree has modifications to tracked
// files.
func (r *Repo) Dirty(ctx context.Context) (bool, error) {
	out, err := r.Run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// RemoteURL returns the URL of the named remote.
func (r *Repo) RemoteURL(ctx context.Context, name string) (string, error) {
	return r.Run(ctx, "remote", "get-url", name)
}
