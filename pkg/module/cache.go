package module

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/paths"
)

// GitCache keeps one bare mirror per remote below a cache directory and
// refreshes each mirror at most once per run. It is safe for concurrent
// use by parallel module syncs.
type GitCache struct {
	dir    string
	runner git.Runner

	mu      sync.Mutex
	mirrors map[string]*mirrorEntry
}

type mirrorEntry struct {
	once sync.Once
	repo *git.Repo
	err  error
}

// NewGitCache creates a cache rooted at dir.
func NewGitCache(dir string, runner git.Runner) *GitCache {
	return &GitCache{dir: dir, runner: runner, mirrors: make(map[string]*mirrorEntry)}
}

// Dir returns the mirror location for remote.
func (c *GitCache) Dir(remote string) string {
	return filepath.Join(c.dir, paths.SanitizeName(remote))
}

// Mirror returns the refreshed mirror of remote.
func (c *GitCache) Mirror(ctx context.Context, remote string) (*git.Repo, error) {
	c.mu.Lock()
	entry, ok := c.mirrors[remote]
	if !ok {
		entry = &mirrorEntry{repo: git.Open(c.Dir(remote), c.runner)}
		c.mirrors[remote] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.err = entry.repo.Mirror(ctx, remote)
	})
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.repo, nil
}
