package deployment

import (
	"context"
	"testing"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/filesystem"
	"github.com/arthur-debert/envdeploy/pkg/testutil"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	testutil.MockSource
	basedir    string
	preloadErr error
	preloaded  bool
}

func (f *fakeSource) Preload(ctx context.Context) error {
	f.preloaded = true
	return f.preloadErr
}

func (f *fakeSource) Basedir() string { return f.basedir }

func newSource(name, basedir string, dirnames ...string) *fakeSource {
	src := &fakeSource{MockSource: testutil.MockSource{SourceName: name}, basedir: basedir}
	for _, d := range dirnames {
		src.Envs = append(src.Envs, &testutil.MockEnvironment{EnvName: d, Dir: d, EnvPath: basedir + "/" + d})
	}
	return src
}

func TestPreload(t *testing.T) {
	a := newSource("a", "/envs", "production")
	b := newSource("b", "/envs", "dev")
	b.preloadErr = errors.New(errors.ErrGit, "unreachable")

	err := New(filesystem.NewMemory(), a, b).Preload(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPreload))
	assert.True(t, a.preloaded)
	assert.True(t, b.preloaded)

	require.NoError(t, New(filesystem.NewMemory(), a).Preload(context.Background()))
}

func TestValidate(t *testing.T) {
	d := New(filesystem.NewMemory(),
		newSource("a", "/envs", "production", "dev"),
		newSource("b", "/other", "production"),
	)
	require.NoError(t, d.Validate())
	assert.Len(t, d.Environments(), 3)
	assert.Len(t, d.Sources(), 2)

	d = New(filesystem.NewMemory(),
		newSource("a", "/envs", "production"),
		newSource("b", "/envs", "production"),
	)
	err := d.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrValidate))
	assert.Contains(t, err.Error(), "/envs/production (a:production, b:production)")
}

func TestPurge(t *testing.T) {
	fs := filesystem.NewMemory()
	for _, dir := range []string{"/envs/production/modules", "/envs/old", "/envs/dev", "/other/legacy", "/other/app"} {
		require.NoError(t, fs.MkdirAll(dir, 0755))
	}
	require.NoError(t, fs.WriteFile("/envs/stray.txt", []byte("x"), 0644))

	d := New(fs,
		newSource("a", "/envs", "production"),
		newSource("b", "/envs/", "dev"),
		newSource("c", "/other", "app"),
	)
	assert.Equal(t, []string{"/envs", "/other"}, d.Basedirs())
	require.NoError(t, d.Purge())

	exists := func(path string) bool {
		_, err := fs.Stat(path)
		return err == nil
	}
	assert.True(t, exists("/envs/production/modules"))
	assert.True(t, exists("/envs/dev"))
	assert.True(t, exists("/other/app"))
	assert.False(t, exists("/envs/old"))
	assert.False(t, exists("/envs/stray.txt"))
	assert.False(t, exists("/other/legacy"))
}

var _ types.Deployment = (*Deployment)(nil)
