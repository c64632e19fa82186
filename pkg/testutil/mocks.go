package testutil

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/envdeploy/pkg/types"
)

// MockModule is a mock implementation of types.Module.
type MockModule struct {
	ModuleName string
	Kind       types.ModuleKind
	ModulePath string
	Expected   string
	Actual     string

	SyncErr       error
	PropertiesErr error
	SyncFunc      func(ctx context.Context, force bool) error

	Log *CallLog
}

func (m *MockModule) Name() string { return m.ModuleName }
func (m *MockModule) Path() string { return m.ModulePath }
func (m *MockModule) Origin() types.ModuleKind {
	if m.Kind == "" {
		return types.ModuleKindForge
	}
	return m.Kind
}

// Sync records "module.sync:<name>:force=<bool>".
func (m *MockModule) Sync(ctx context.Context, force bool) error {
	m.Log.Add("module.sync:%s:force=%t", m.ModuleName, force)
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx, force)
	}
	return m.SyncErr
}

func (m *MockModule) Properties() (types.ModuleProperties, error) {
	if m.PropertiesErr != nil {
		return types.ModuleProperties{}, m.PropertiesErr
	}
	return types.ModuleProperties{Kind: m.Origin(), Expected: m.Expected, Actual: m.Actual}, nil
}

// MockManifest is a mock implementation of types.Manifest.
type MockManifest struct {
	EnvName    string
	ModuleList []*MockModule
	LoadErr    error
	PurgeErr   error

	// LoadedOverride is the branch override passed to the last Load.
	LoadedOverride string

	Log    *CallLog
	loaded bool
}

// Load records "manifest.load:<env>".
func (m *MockManifest) Load(branchOverride string) error {
	m.Log.Add("manifest.load:%s", m.EnvName)
	m.LoadedOverride = branchOverride
	if m.LoadErr != nil {
		return m.LoadErr
	}
	m.loaded = true
	return nil
}

func (m *MockManifest) Modules() []types.Module {
	if !m.loaded {
		return nil
	}
	return m.modules()
}

func (m *MockManifest) modules() []types.Module {
	out := make([]types.Module, len(m.ModuleList))
	for i, mod := range m.ModuleList {
		out[i] = mod
	}
	return out
}

// Purge records "manifest.purge:<env>".
func (m *MockManifest) Purge() error {
	m.Log.Add("manifest.purge:%s", m.EnvName)
	return m.PurgeErr
}

// MockEnvironment is a mock implementation of types.Environment.
type MockEnvironment struct {
	EnvName   string
	Dir       string
	EnvPath   string
	Sig       string
	EnvStatus types.Status

	SyncErr     error
	PurgeErr    error
	GenerateErr error
	ModulesErr  error

	EnvManifest *MockManifest
	InfoData    map[string]interface{}

	// PurgeCalls holds the options of every Purge call.
	PurgeCalls []types.PurgeOptions

	Log *CallLog
}

func (e *MockEnvironment) Name() string {
	if e.EnvName == "" {
		return e.Dir
	}
	return e.EnvName
}

func (e *MockEnvironment) Dirname() string   { return e.Dir }
func (e *MockEnvironment) Path() string      { return e.EnvPath }
func (e *MockEnvironment) Signature() string { return e.Sig }

// Status records "env.status:<dir>".
func (e *MockEnvironment) Status() types.Status {
	e.Log.Add("env.status:%s", e.Dir)
	if e.EnvStatus == "" {
		return types.StatusInSync
	}
	return e.EnvStatus
}

// Sync records "env.sync:<dir>".
func (e *MockEnvironment) Sync(ctx context.Context) error {
	e.Log.Add("env.sync:%s", e.Dir)
	return e.SyncErr
}

func (e *MockEnvironment) Manifest() types.Manifest {
	if e.EnvManifest == nil {
		return nil
	}
	return e.EnvManifest
}

func (e *MockEnvironment) Modules() ([]types.Module, error) {
	if e.ModulesErr != nil {
		return nil, e.ModulesErr
	}
	if e.EnvManifest == nil {
		return nil, nil
	}
	return e.EnvManifest.modules(), nil
}

// Purge records "env.purge:<dir>".
func (e *MockEnvironment) Purge(opts types.PurgeOptions) error {
	e.Log.Add("env.purge:%s", e.Dir)
	e.PurgeCalls = append(e.PurgeCalls, opts)
	return e.PurgeErr
}

func (e *MockEnvironment) Allowlist(user []string) []string {
	out := make([]string, len(user))
	for i, pattern := range user {
		out[i] = filepath.Join(e.EnvPath, pattern)
	}
	return out
}

// GenerateTypes records "env.generate:<dir>".
func (e *MockEnvironment) GenerateTypes(ctx context.Context) error {
	e.Log.Add("env.generate:%s", e.Dir)
	return e.GenerateErr
}

func (e *MockEnvironment) Info() map[string]interface{} {
	if e.InfoData != nil {
		return e.InfoData
	}
	return map[string]interface{}{"name": e.Name(), "signature": e.Sig}
}

// MockSource is a mock implementation of types.Source.
type MockSource struct {
	SourceName string
	Envs       []*MockEnvironment
}

func (s *MockSource) Name() string { return s.SourceName }

func (s *MockSource) Environments() []types.Environment {
	out := make([]types.Environment, len(s.Envs))
	for i, e := range s.Envs {
		out[i] = e
	}
	return out
}

// MockDeployment is a mock implementation of types.Deployment.
type MockDeployment struct {
	SourceList  []*MockSource
	PreloadErr  error
	ValidateErr error
	PurgeErr    error

	Log *CallLog
}

// Preload records "deployment.preload".
func (d *MockDeployment) Preload(ctx context.Context) error {
	d.Log.Add("deployment.preload")
	return d.PreloadErr
}

// Validate records "deployment.validate".
func (d *MockDeployment) Validate() error {
	d.Log.Add("deployment.validate")
	return d.ValidateErr
}

func (d *MockDeployment) Sources() []types.Source {
	out := make([]types.Source, len(d.SourceList))
	for i, s := range d.SourceList {
		out[i] = s
	}
	return out
}

func (d *MockDeployment) Environments() []types.Environment {
	var out []types.Environment
	for _, s := range d.SourceList {
		out = append(out, s.Environments()...)
	}
	return out
}

// Purge records "deployment.purge".
func (d *MockDeployment) Purge() error {
	d.Log.Add("deployment.purge")
	return d.PurgeErr
}
