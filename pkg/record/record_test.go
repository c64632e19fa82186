package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/filesystem"
	"github.com/arthur-debert/envdeploy/pkg/testutil"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv() *testutil.MockEnvironment {
	return &testutil.MockEnvironment{
		EnvName: "production",
		Dir:     "production",
		EnvPath: "/envs/production",
		Sig:     "abc123",
		EnvManifest: &testutil.MockManifest{
			EnvName: "production",
			ModuleList: []*testutil.MockModule{
				{ModuleName: "acme/ntp", Kind: types.ModuleKindForge, Expected: "1.2.0", Actual: "1.2.0"},
				{ModuleName: "apache", Kind: types.ModuleKindGit, Expected: "main", Actual: "deadbeef"},
				{ModuleName: "site", Kind: types.ModuleKindGit, Expected: "main"},
			},
		},
	}
}

func TestWrite(t *testing.T) {
	fs := filesystem.NewMemory()
	w := NewWriter(fs)
	env := newEnv()

	started := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	require.NoError(t, w.Write(env, started, finished, true))

	data, err := fs.ReadFile("/envs/production/.r10k-deploy.json")
	require.NoError(t, err)

	var rec struct {
		Name          string         `json:"name"`
		Signature     string         `json:"signature"`
		StartedAt     string         `json:"started_at"`
		FinishedAt    string         `json:"finished_at"`
		DeploySuccess bool           `json:"deploy_success"`
		ModuleDeploys []ModuleDeploy `json:"module_deploys"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "production", rec.Name)
	assert.Equal(t, "abc123", rec.Signature)
	assert.Equal(t, "2026-10-19T12:00:00Z", rec.StartedAt)
	assert.Equal(t, "2026-10-19T12:01:30Z", rec.FinishedAt)
	assert.True(t, rec.DeploySuccess)

	require.Len(t, rec.ModuleDeploys, 3)
	assert.Equal(t, "acme/ntp", rec.ModuleDeploys[0].Name)
	assert.Equal(t, "1.2.0", rec.ModuleDeploys[0].Version)
	assert.Nil(t, rec.ModuleDeploys[0].SHA)
	require.NotNil(t, rec.ModuleDeploys[1].SHA)
	assert.Equal(t, "deadbeef", *rec.ModuleDeploys[1].SHA)
	assert.Nil(t, rec.ModuleDeploys[2].SHA)

	// Null, not omitted
	assert.Contains(t, string(data), `"sha": null`)

	// No staging file is left behind
	_, err = fs.Stat("/envs/production/.r10k-deploy.json" + filesystem.StagingSuffix)
	assert.Error(t, err)
}

func TestWrite_ReplacesPrevious(t *testing.T) {
	fs := filesystem.NewMemory()
	w := NewWriter(fs)
	env := newEnv()
	now := time.Now()

	require.NoError(t, w.Write(env, now, now, true))
	require.NoError(t, w.Write(env, now, now, false))

	rec, err := Read(fs, env)
	require.NoError(t, err)
	assert.Equal(t, false, rec[KeyDeploySuccess])
}

func TestCollectModules_BestEffort(t *testing.T) {
	w := NewWriter(filesystem.NewMemory())

	env := newEnv()
	env.ModulesErr = errors.New(errors.ErrManifestLoad, "broken Deployfile")
	assert.Equal(t, []ModuleDeploy{}, w.CollectModules(env))

	env = newEnv()
	env.EnvManifest.ModuleList[1].PropertiesErr = errors.New(errors.ErrGit, "corrupt checkout")
	assert.Equal(t, []ModuleDeploy{}, w.CollectModules(env))

	// A failed collection still produces a record
	fs := filesystem.NewMemory()
	require.NoError(t, NewWriter(fs).Write(env, time.Now(), time.Now(), false))
	rec, err := Read(fs, env)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, rec[KeyModuleDeploys])
}

func TestBuild_RunFieldsWin(t *testing.T) {
	env := newEnv()
	env.InfoData = map[string]interface{}{"name": "production", "deploy_success": "spoofed", "branch": "production"}

	rec := NewWriter(filesystem.NewMemory()).Build(env, time.Now(), time.Now(), false)
	assert.Equal(t, false, rec[KeyDeploySuccess])
	assert.Equal(t, "production", rec["branch"])
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(filesystem.NewMemory(), newEnv())
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}
