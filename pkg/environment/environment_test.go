package environment_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/envdeploy/pkg/environment"
	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/filesystem"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/manifest"
	"github.com/arthur-debert/envdeploy/pkg/testutil"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deployfile = `
modules:
  - name: site
    local: true
`

type gitFixture struct {
	origin  string
	mirror  *git.Repo
	basedir string
	first   string
}

func newGitFixture(t *testing.T) *gitFixture {
	t.Helper()
	root := t.TempDir()
	f := &gitFixture{
		origin:  filepath.Join(root, "control"),
		basedir: filepath.Join(root, "environments"),
	}
	f.first = testutil.InitRepo(t, f.origin, map[string]string{
		"Deployfile.yaml":     deployfile,
		"manifests/site.pp":   "node default {}\n",
		"environment.conf":    "modulepath = modules\n",
		"modules/site/README": "tracked\n",
	})
	f.mirror = git.Open(filepath.Join(root, "cache", "control.git"), git.NewCLI())
	require.NoError(t, f.mirror.Mirror(context.Background(), f.origin))
	return f
}

func (f *gitFixture) env(command ...string) *environment.Git {
	return environment.New(environment.Options{
		Branch:  "main",
		Dirname: "main",
		Basedir: f.basedir,
		Source:  "control",
		Remote:  f.origin,
		Mirror:  f.mirror,
		Runner:  git.NewCLI(),
		FS:      filesystem.NewOS(),
		Manifest: manifest.Settings{
			Filenames: []string{"Deployfile.yaml"},
			Moduledir: "modules",
		},
		GenerateTypesCommand: command,
	})
}

func TestSyncLifecycle(t *testing.T) {
	f := newGitFixture(t)
	ctx := context.Background()
	env := f.env()

	assert.Equal(t, filepath.Join(f.basedir, "main"), env.Path())
	assert.Equal(t, types.StatusAbsent, env.Status())
	assert.Equal(t, "", env.Signature())
	mods, err := env.Modules()
	require.NoError(t, err)
	assert.Empty(t, mods)

	require.NoError(t, env.Sync(ctx))
	assert.Equal(t, types.StatusInSync, env.Status())
	assert.Equal(t, f.first, env.Signature())
	assert.FileExists(t, filepath.Join(env.Path(), "manifests", "site.pp"))
	require.NotNil(t, env.Manifest())
	mods, err = env.Modules()
	require.NoError(t, err)
	assert.Len(t, mods, 1, "the Deployfile is read again after a sync")

	// A new commit makes the checkout outdated once the mirror is refreshed
	second := testutil.CommitFiles(t, f.origin, map[string]string{"manifests/site.pp": "node web {}\n"}, "update")
	require.NoError(t, f.mirror.Mirror(ctx, f.origin))
	assert.Equal(t, types.StatusOutdated, env.Status())

	require.NoError(t, env.Sync(ctx))
	assert.Equal(t, types.StatusInSync, env.Status())
	assert.Equal(t, second, env.Signature())
	data, err := os.ReadFile(filepath.Join(env.Path(), "manifests", "site.pp"))
	require.NoError(t, err)
	assert.Equal(t, "node web {}\n", string(data))
}

func TestSyncOverwritesLocalChanges(t *testing.T) {
	f := newGitFixture(t)
	ctx := context.Background()
	env := f.env()
	require.NoError(t, env.Sync(ctx))

	site := filepath.Join(env.Path(), "manifests", "site.pp")
	require.NoError(t, os.WriteFile(site, []byte("edited\n"), 0644))
	require.NoError(t, env.Sync(ctx))

	data, err := os.ReadFile(site)
	require.NoError(t, err)
	assert.Equal(t, "node default {}\n", string(data))
}

func TestSyncReplacesMismatchedDirectory(t *testing.T) {
	f := newGitFixture(t)
	env := f.env()

	require.NoError(t, os.MkdirAll(env.Path(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.Path(), "stray"), []byte("x"), 0644))
	assert.Equal(t, types.StatusMismatched, env.Status())

	require.NoError(t, env.Sync(context.Background()))
	assert.Equal(t, types.StatusInSync, env.Status())
	assert.NoFileExists(t, filepath.Join(env.Path(), "stray"))
}

func TestSyncUnknownBranch(t *testing.T) {
	f := newGitFixture(t)
	env := environment.New(environment.Options{
		Branch:  "gone",
		Dirname: "gone",
		Basedir: f.basedir,
		Mirror:  f.mirror,
		Runner:  git.NewCLI(),
		FS:      filesystem.NewOS(),
	})

	err := env.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrEnvSync))
	assert.NoDirExists(t, env.Path())
}

func TestModulesAndPurge(t *testing.T) {
	f := newGitFixture(t)
	env := f.env()
	require.NoError(t, env.Sync(context.Background()))

	mods, err := env.Modules()
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, filepath.Join(env.Path(), "modules", "site"), mods[0].Path())

	write := func(rel string) string {
		path := filepath.Join(env.Path(), rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		return path
	}
	junk := write("junk.txt")
	staleModule := write("modules/stale/init.pp")
	moduleContent := write("modules/site/generated.pp")
	kept := write("keep.local")
	nestedJunk := write("manifests/old.pp")
	rec := write(".r10k-deploy.json")

	require.NoError(t, env.Purge(types.PurgeOptions{
		Recurse:   true,
		Allowlist: env.Allowlist([]string{"*.local"}),
	}))

	assert.NoFileExists(t, junk)
	assert.NoDirExists(t, filepath.Dir(staleModule))
	assert.NoFileExists(t, nestedJunk)
	assert.FileExists(t, moduleContent)
	assert.FileExists(t, kept)
	assert.FileExists(t, rec)
	assert.FileExists(t, filepath.Join(env.Path(), "manifests", "site.pp"))
	assert.DirExists(t, filepath.Join(env.Path(), ".git"))
}

func TestPurgeRefusesUnreadableDeployfile(t *testing.T) {
	f := newGitFixture(t)
	env := f.env()
	require.NoError(t, env.Sync(context.Background()))

	generated := filepath.Join(env.Path(), "modules", "site", "generated.pp")
	junk := filepath.Join(env.Path(), "junk.txt")
	require.NoError(t, os.WriteFile(generated, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(junk, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(env.Path(), "Deployfile.yaml"), []byte("modules: ["), 0644))

	err := env.Purge(types.PurgeOptions{Recurse: true})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPurge), "got %v", err)
	assert.FileExists(t, generated)
	assert.FileExists(t, junk)
}

func TestManifestPurgeAfterDeployfileRemoved(t *testing.T) {
	f := newGitFixture(t)
	ctx := context.Background()
	env := f.env()
	require.NoError(t, env.Sync(ctx))

	stale := filepath.Join(env.Path(), "modules", "stale")
	require.NoError(t, os.MkdirAll(stale, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stale, "init.pp"), []byte("x"), 0644))

	testutil.RunGit(t, f.origin, "rm", "--quiet", "Deployfile.yaml")
	testutil.RunGit(t, f.origin, "commit", "--quiet", "-m", "drop Deployfile")
	require.NoError(t, f.mirror.Mirror(ctx, f.origin))
	require.NoError(t, env.Sync(ctx))
	assert.NoFileExists(t, filepath.Join(env.Path(), "Deployfile.yaml"))

	m := env.Manifest()
	require.NotNil(t, m)
	require.NoError(t, m.Load(""))
	assert.Empty(t, m.Modules())
	require.NoError(t, m.Purge())
	assert.NoDirExists(t, stale)
}

func TestAllowlistIsAnchored(t *testing.T) {
	f := newGitFixture(t)
	env := f.env()
	assert.Equal(t,
		[]string{filepath.Join(env.Path(), "data/**"), filepath.Join(env.Path(), "*.local")},
		env.Allowlist([]string{"data/**", "*.local"}))
	assert.Empty(t, env.Allowlist(nil))
}

func TestGenerateTypes(t *testing.T) {
	f := newGitFixture(t)
	env := f.env("sh", "-c", "echo $environment $environmentpath > types.out")
	require.NoError(t, env.Sync(context.Background()))

	require.NoError(t, env.GenerateTypes(context.Background()))
	data, err := os.ReadFile(filepath.Join(env.Path(), "types.out"))
	require.NoError(t, err)
	assert.Equal(t, "main "+f.basedir, strings.TrimSpace(string(data)))
}

func TestGenerateTypesFailure(t *testing.T) {
	f := newGitFixture(t)
	env := f.env("sh", "-c", "exit 2")
	require.NoError(t, env.Sync(context.Background()))

	err := env.GenerateTypes(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGenerateTypes))

	err = f.env().GenerateTypes(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGenerateTypes))
}

func TestInfo(t *testing.T) {
	f := newGitFixture(t)
	env := f.env()
	require.NoError(t, env.Sync(context.Background()))

	info := env.Info()
	assert.Equal(t, "main", info["name"])
	assert.Equal(t, "main", info["branch"])
	assert.Equal(t, "control", info["source"])
	assert.Equal(t, f.origin, info["remote"])
	assert.Equal(t, f.first, info["signature"])
	assert.Equal(t, "control", env.Source())
}
