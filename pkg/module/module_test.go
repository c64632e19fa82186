package module

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/registry"
	"github.com/arthur-debert/envdeploy/pkg/testutil"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortName(t *testing.T) {
	tests := map[string]string{
		"puppetlabs/stdlib": "stdlib",
		"puppetlabs-stdlib": "stdlib",
		"stdlib":            "stdlib",
		"acme/my-mod":       "my-mod",
		"trailing-":         "trailing-",
	}
	for in, want := range tests {
		assert.Equal(t, want, ShortName(in), in)
	}
}

func TestNew(t *testing.T) {
	opts := Options{Moduledir: "/envs/production/modules", EnvPath: "/envs/production"}

	m, err := New(Spec{Name: "acme/ntp"}, opts)
	require.NoError(t, err)
	assert.Equal(t, types.ModuleKindForge, m.Origin())
	assert.Equal(t, "/envs/production/modules/ntp", m.Path())

	m, err = New(Spec{Name: "site", Kind: types.ModuleKindLocal, InstallPath: "site-modules"}, opts)
	require.NoError(t, err)
	assert.Equal(t, types.ModuleKindLocal, m.Origin())
	assert.Equal(t, "/envs/production/site-modules/site", m.Path())

	m, err = New(Spec{Name: "apache", Kind: types.ModuleKindGit, Git: "https://git.example.com/apache.git"}, opts)
	require.NoError(t, err)
	assert.Equal(t, types.ModuleKindGit, m.Origin())

	_, err = New(Spec{Name: "apache", Kind: types.ModuleKindGit}, opts)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = New(Spec{Name: "x", Kind: "svn"}, opts)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = New(Spec{}, opts)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

// fakeRegistry installs releases by writing their metadata.json.
type fakeRegistry struct {
	latest   string
	installs []string
	err      error
}

func (f *fakeRegistry) Latest(ctx context.Context, name string) (*registry.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.Release{Slug: registry.Slug(name) + "-" + f.latest, Version: f.latest}, nil
}

func (f *fakeRegistry) Release(ctx context.Context, name, version string) (*registry.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.Release{Slug: registry.Slug(name) + "-" + version, Version: version}, nil
}

func (f *fakeRegistry) Install(ctx context.Context, rel *registry.Release, dest string) error {
	f.installs = append(f.installs, rel.Slug)
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, metadataFile), []byte(`{"version":"`+rel.Version+`"}`), 0644)
}

func TestForgeModule_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("pinned version installs once", func(t *testing.T) {
		reg := &fakeRegistry{latest: "2.0.0"}
		m, err := New(Spec{Name: "acme/ntp", Version: "1.0.0"}, Options{Moduledir: t.TempDir(), Registry: reg})
		require.NoError(t, err)

		require.NoError(t, m.Sync(ctx, false))
		require.NoError(t, m.Sync(ctx, true))
		assert.Equal(t, []string{"acme-ntp-1.0.0"}, reg.installs)

		props, err := m.Properties()
		require.NoError(t, err)
		assert.Equal(t, types.ModuleProperties{Kind: types.ModuleKindForge, Expected: "1.0.0", Actual: "1.0.0"}, props)
	})

	t.Run("latest follows the registry", func(t *testing.T) {
		reg := &fakeRegistry{latest: "2.0.0"}
		m, err := New(Spec{Name: "acme/ntp", Version: VersionLatest}, Options{Moduledir: t.TempDir(), Registry: reg})
		require.NoError(t, err)

		require.NoError(t, m.Sync(ctx, false))
		reg.latest = "2.1.0"
		require.NoError(t, m.Sync(ctx, false))
		assert.Equal(t, []string{"acme-ntp-2.0.0", "acme-ntp-2.1.0"}, reg.installs)

		props, err := m.Properties()
		require.NoError(t, err)
		assert.Equal(t, "2.1.0", props.Expected)
		assert.Equal(t, "2.1.0", props.Actual)
	})

	t.Run("unpinned keeps what is installed", func(t *testing.T) {
		reg := &fakeRegistry{latest: "2.0.0"}
		m, err := New(Spec{Name: "acme/ntp"}, Options{Moduledir: t.TempDir(), Registry: reg})
		require.NoError(t, err)

		require.NoError(t, m.Sync(ctx, false))
		reg.latest = "3.0.0"
		require.NoError(t, m.Sync(ctx, false))
		assert.Equal(t, []string{"acme-ntp-2.0.0"}, reg.installs)
	})

	t.Run("registry failure", func(t *testing.T) {
		reg := &fakeRegistry{err: errors.New(errors.ErrRegistry, "down")}
		m, err := New(Spec{Name: "acme/ntp", Version: "1.0.0"}, Options{Moduledir: t.TempDir(), Registry: reg})
		require.NoError(t, err)

		err = m.Sync(ctx, false)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrModuleSync))
		assert.Equal(t, "acme/ntp", errors.GetErrorDetails(err)["module"])
		assert.Equal(t, "forge", errors.GetErrorDetails(err)["origin"])
	})
}

func TestLocalModule(t *testing.T) {
	dir := t.TempDir()
	m, err := New(Spec{Name: "site", Kind: types.ModuleKindLocal}, Options{Moduledir: dir})
	require.NoError(t, err)

	require.NoError(t, m.Sync(context.Background(), true))
	props, err := m.Properties()
	require.NoError(t, err)
	assert.Equal(t, "local", props.Expected)
	assert.Equal(t, "local", props.Actual)
}

func TestGitModule_Sync(t *testing.T) {
	testutil.RequireGit(t)
	ctx := context.Background()

	upstream := filepath.Join(t.TempDir(), "apache")
	mainSHA := testutil.InitRepo(t, upstream, map[string]string{"manifests/init.pp": "class apache {}\n"})
	testutil.CreateBranch(t, upstream, "production")
	prodSHA := testutil.CommitFiles(t, upstream, map[string]string{"manifests/init.pp": "class apache { }\n"}, "prod")
	testutil.Checkout(t, upstream, "main")

	runner := git.NewCLI()
	cache := NewGitCache(filepath.Join(t.TempDir(), "cache"), runner)
	moduledir := filepath.Join(t.TempDir(), "modules")

	newModule := func(spec Spec, branch, override string) types.Module {
		spec.Kind = types.ModuleKindGit
		spec.Git = upstream
		m, err := New(spec, Options{
			Moduledir:      moduledir,
			Branch:         branch,
			BranchOverride: override,
			Cache:          cache,
			Runner:         runner,
		})
		require.NoError(t, err)
		return m
	}

	t.Run("control branch", func(t *testing.T) {
		m := newModule(Spec{Name: "acme/apache", Ref: ControlBranch}, "production", "")
		require.NoError(t, m.Sync(ctx, false))

		props, err := m.Properties()
		require.NoError(t, err)
		assert.Equal(t, "production", props.Expected)
		assert.Equal(t, prodSHA, props.Actual)
	})

	t.Run("missing control branch falls back to override", func(t *testing.T) {
		m := newModule(Spec{Name: "acme/apache", Ref: ControlBranch, DefaultBranch: "production"}, "feature_x", "main")
		require.NoError(t, m.Sync(ctx, true))

		props, err := m.Properties()
		require.NoError(t, err)
		assert.Equal(t, mainSHA, props.Actual)
	})

	t.Run("missing control branch falls back to default branch", func(t *testing.T) {
		m := newModule(Spec{Name: "acme/apache", Ref: ControlBranch, DefaultBranch: "production"}, "feature_x", "")
		require.NoError(t, m.Sync(ctx, true))

		props, err := m.Properties()
		require.NoError(t, err)
		assert.Equal(t, prodSHA, props.Actual)
	})

	t.Run("unresolvable ref fails", func(t *testing.T) {
		m := newModule(Spec{Name: "acme/apache", Ref: ControlBranch}, "feature_x", "")
		err := m.Sync(ctx, true)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrModuleSync))
	})

	t.Run("local modifications are kept without force", func(t *testing.T) {
		m := newModule(Spec{Name: "acme/apache", Ref: "main"}, "production", "")
		require.NoError(t, m.Sync(ctx, true))

		file := filepath.Join(m.Path(), "manifests", "init.pp")
		require.NoError(t, os.WriteFile(file, []byte("local edit\n"), 0644))

		mod := newModule(Spec{Name: "acme/apache", Ref: "production"}, "production", "")
		require.NoError(t, mod.Sync(ctx, false))
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Equal(t, "local edit\n", string(data))

		require.NoError(t, mod.Sync(ctx, true))
		props, err := mod.Properties()
		require.NoError(t, err)
		assert.Equal(t, prodSHA, props.Actual)
	})
}

func TestGitModule_PropertiesWithoutCheckout(t *testing.T) {
	m, err := New(Spec{Name: "apache", Kind: types.ModuleKindGit, Git: "x", Ref: "v1.0.0"}, Options{Moduledir: t.TempDir()})
	require.NoError(t, err)
	props, err := m.Properties()
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", props.Expected)
	assert.Empty(t, props.Actual)
}
