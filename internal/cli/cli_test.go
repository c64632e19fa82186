package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

type deploySite struct {
	root     string
	origin   string
	basedir  string
	settings string
}

func newDeploySite(t *testing.T) *deploySite {
	t.Helper()
	testutil.RequireGit(t)

	root := t.TempDir()
	s := &deploySite{
		root:     root,
		origin:   filepath.Join(root, "control"),
		basedir:  filepath.Join(root, "environments"),
		settings: filepath.Join(root, "envdeploy.yaml"),
	}
	testutil.InitRepo(t, s.origin, map[string]string{
		"Deployfile.yaml":                "modules:\n  - name: site\n    local: true\n",
		"modules/site/manifests/init.pp": "class site {}\n",
	})
	testutil.CreateBranch(t, s.origin, "feature/login")

	settings := fmt.Sprintf(`cachedir: %s
sources:
  control:
    remote: %s
    basedir: %s
deploy:
  purge_levels: [deployment, environment, puppetfile]
postrun: ["sh", "-c", "echo $modifiedenvs > %s"]
`, filepath.Join(root, "cache"), s.origin, s.basedir, filepath.Join(root, "hook.out"))
	require.NoError(t, os.WriteFile(s.settings, []byte(settings), 0644))
	return s
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "envdeploy version")
}

func TestConfigDefaults(t *testing.T) {
	out, err := execute(t, "config", "defaults")
	require.NoError(t, err)
	assert.Contains(t, out, "purge_levels")
	assert.Contains(t, out, "[registry]")
}

func TestConfigShow(t *testing.T) {
	s := newDeploySite(t)
	out, err := execute(t, "--config", s.settings, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# settings file: "+s.settings)
	assert.Contains(t, out, "remote: "+s.origin)
	assert.Contains(t, out, "- puppetfile")
}

func TestDeployEnvironment(t *testing.T) {
	s := newDeploySite(t)
	stale := filepath.Join(s.basedir, "retired")
	require.NoError(t, os.MkdirAll(stale, 0755))

	out, err := execute(t, "--config", s.settings, "deploy", "environment", "--format", "json")
	require.NoError(t, err, out)

	var res struct {
		Success      bool `json:"success"`
		Environments []struct {
			Dirname string `json:"dirname"`
			State   string `json:"state"`
		} `json:"environments"`
		DeploymentPurged bool `json:"deployment_purged"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.True(t, res.Success)
	assert.True(t, res.DeploymentPurged)

	var dirnames []string
	for _, env := range res.Environments {
		dirnames = append(dirnames, env.Dirname)
		assert.Equal(t, "visited-ok", env.State)
	}
	assert.ElementsMatch(t, []string{"main", "feature_login"}, dirnames)

	for _, d := range dirnames {
		assert.FileExists(t, filepath.Join(s.basedir, d, ".r10k-deploy.json"))
		assert.FileExists(t, filepath.Join(s.basedir, d, "modules", "site", "manifests", "init.pp"))
	}
	assert.NoDirExists(t, stale)

	hook, err := os.ReadFile(filepath.Join(s.root, "hook.out"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "feature_login"}, strings.Fields(string(hook)))
}

func TestDeployUnknownEnvironmentFails(t *testing.T) {
	s := newDeploySite(t)
	out, err := execute(t, "--config", s.settings, "deploy", "environment", "missing", "--format", "text")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDeployFailed))
	assert.Contains(t, out, "not found: missing")
	assert.Contains(t, out, "Deploy failed")
	assert.NoDirExists(t, filepath.Join(s.basedir, "main"))
}

func TestDeployWriteLocked(t *testing.T) {
	s := newDeploySite(t)
	t.Setenv("ENVDEPLOY_DEPLOY_WRITE_LOCK", "frozen for release")

	_, err := execute(t, "--config", s.settings, "deploy", "environment")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrWriteLocked))
	assert.NoDirExists(t, s.basedir)
}

func TestDisplay(t *testing.T) {
	s := newDeploySite(t)
	out, err := execute(t, "--config", s.settings, "deploy", "display", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "control "+s.origin)
	assert.Contains(t, out, "feature_login (feature/login) absent")
	assert.Contains(t, out, "main absent")
	assert.NoDirExists(t, s.basedir)
}

func TestBadFormat(t *testing.T) {
	s := newDeploySite(t)
	_, err := execute(t, "--config", s.settings, "deploy", "display", "--format", "xml")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestHelpTopics(t *testing.T) {
	out, err := execute(t, "help", "topics")
	require.NoError(t, err)
	assert.Contains(t, out, "purging")
	assert.Contains(t, out, "--modules")

	out, err = execute(t, "help", "purging")
	require.NoError(t, err)
	assert.Contains(t, out, "purge_allowlist")
}
