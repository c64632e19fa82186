// Package purge removes unmanaged content from managed directories.
//
// A Plan names a managed root, the paths below it that are desired, and
// allowlist globs for content that must survive even though nothing
// declares it. Everything else found below the root is unmanaged and is
// removed. The same planner serves the three purge levels: environment
// checkouts (recursive), module directories and source base directories
// (top level only).
package purge

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
)

// Plan describes one managed directory.
type Plan struct {
	// Root is the managed directory. It is never removed itself.
	Root string

	// Desired lists paths below Root that are managed and kept.
	Desired []string

	// NoRecurse lists desired directories whose content is managed by
	// someone else, e.g. a module checkout or a .git directory.
	NoRecurse []string

	// Allowlist holds doublestar globs. Absolute patterns are matched
	// against absolute paths, relative ones against the slash separated
	// path relative to Root. A match protects the whole subtree.
	Allowlist []string

	// Recurse descends into desired directories.
	Recurse bool
}

// Purger executes plans against a filesystem.
type Purger struct {
	fs     types.FS
	logger zerolog.Logger
}

// New creates a Purger.
func New(fs types.FS) *Purger {
	return &Purger{fs: fs, logger: logging.GetLogger("purge")}
}

// Pending returns the paths Purge would remove, sorted.
func (p *Purger) Pending(plan Plan) ([]string, error) {
	w := newWalker(p.fs, plan)
	if err := w.walk(filepath.Clean(plan.Root), true); err != nil {
		return nil, err
	}
	sort.Strings(w.pending)
	return w.pending, nil
}

// Purge removes every unmanaged path of plan and returns what was removed.
// Removal continues past individual failures; all failures are reported
// together.
func (p *Purger) Purge(plan Plan) ([]string, error) {
	pending, err := p.Pending(plan)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPurge, "cannot enumerate unmanaged content").
			WithDetail("root", plan.Root)
	}

	var removed []string
	var failures []error
	for _, path := range pending {
		if err := p.fs.RemoveAll(path); err != nil {
			p.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove unmanaged content")
			failures = append(failures, err)
			continue
		}
		p.logger.Info().Str("path", path).Msg("Removed unmanaged content")
		removed = append(removed, path)
	}

	if len(failures) > 0 {
		return removed, errors.Wrapf(stderrors.Join(failures...), errors.ErrPurge,
			"failed to remove %d unmanaged path(s)", len(failures)).
			WithDetail("root", plan.Root)
	}
	return removed, nil
}

type walker struct {
	fs        types.FS
	plan      Plan
	root      string
	desired   map[string]bool
	noRecurse map[string]bool
	pending   []string
}

func newWalker(fs types.FS, plan Plan) *walker {
	w := &walker{
		fs:        fs,
		plan:      plan,
		root:      filepath.Clean(plan.Root),
		desired:   make(map[string]bool, len(plan.Desired)),
		noRecurse: make(map[string]bool, len(plan.NoRecurse)),
	}
	for _, d := range plan.Desired {
		w.desired[filepath.Clean(d)] = true
	}
	for _, d := range plan.NoRecurse {
		w.noRecurse[filepath.Clean(d)] = true
	}
	return w
}

func (w *walker) walk(dir string, top bool) error {
	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		if top && stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if w.allowed(path) {
			continue
		}

		if w.desired[path] {
			if entry.IsDir() && w.plan.Recurse && !w.noRecurse[path] {
				if err := w.walk(path, false); err != nil {
					return err
				}
			}
			continue
		}

		if entry.IsDir() && (w.hasDesiredBelow(path) || w.hasAllowedBelow(path)) {
			if err := w.walk(path, false); err != nil {
				return err
			}
			continue
		}

		w.pending = append(w.pending, path)
	}
	return nil
}

func (w *walker) allowed(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	abs := filepath.ToSlash(path)

	for _, pattern := range w.plan.Allowlist {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		target := rel
		if strings.HasPrefix(pattern, "/") {
			target = abs
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *walker) hasDesiredBelow(dir string) bool {
	prefix := dir + string(os.PathSeparator)
	for d := range w.desired {
		if strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}

func (w *walker) hasAllowedBelow(dir string) bool {
	if len(w.plan.Allowlist) == 0 {
		return false
	}
	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		// Unreadable content cannot be proven safe to delete
		return true
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if w.allowed(path) {
			return true
		}
		if entry.IsDir() && w.hasAllowedBelow(path) {
			return true
		}
	}
	return false
}
