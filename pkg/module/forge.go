package module

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/registry"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Version keywords of registry modules
const (
	VersionLatest = "latest"
	VersionAny    = ""
)

// metadataFile holds the version of an installed release.
const metadataFile = "metadata.json"

// ForgeModule is a module installed from a registry release.
type ForgeModule struct {
	spec     Spec
	path     string
	opts     Options
	resolved string
	logger   zerolog.Logger
}

func newForgeModule(spec Spec, path string, opts Options) *ForgeModule {
	return &ForgeModule{
		spec: spec,
		path: path,
		opts: opts,
		logger: logging.GetLogger("module").With().
			Str("module", spec.Name).
			Str("origin", string(types.ModuleKindForge)).
			Logger(),
	}
}

func (m *ForgeModule) Name() string             { return m.spec.Name }
func (m *ForgeModule) Origin() types.ModuleKind { return types.ModuleKindForge }
func (m *ForgeModule) Path() string             { return m.path }

// installedVersion reads the version from the release metadata, or ""
// when nothing is installed.
func installedVersion(path string) string {
	data, err := os.ReadFile(filepath.Join(path, metadataFile))
	if err != nil {
		return ""
	}
	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return ""
	}
	return meta.Version
}

// Sync implements types.Module. Releases are immutable, so force does not
// reinstall a release that is already in place.
func (m *ForgeModule) Sync(ctx context.Context, force bool) error {
	if m.opts.Registry == nil {
		return syncError(errors.New(errors.ErrRegistry, "no registry configured"), m.spec, "cannot install %s", m.spec.Name)
	}

	installed := installedVersion(m.path)
	var (
		rel *registry.Release
		err error
	)
	switch m.spec.Version {
	case VersionAny:
		if installed != "" {
			m.resolved = installed
			return nil
		}
		rel, err = m.opts.Registry.Latest(ctx, m.spec.Name)
	case VersionLatest:
		rel, err = m.opts.Registry.Latest(ctx, m.spec.Name)
	default:
		if installed == m.spec.Version {
			return nil
		}
		rel, err = m.opts.Registry.Release(ctx, m.spec.Name, m.spec.Version)
	}
	if err != nil {
		return syncError(err, m.spec, "failed to look up %s", m.spec.Name)
	}

	m.resolved = rel.Version
	if rel.Version == installed {
		return nil
	}
	if err := m.opts.Registry.Install(ctx, rel, m.path); err != nil {
		return syncError(err, m.spec, "failed to install %s %s", m.spec.Name, rel.Version)
	}
	m.logger.Info().Str("from", installed).Str("to", rel.Version).Msg("Module installed")
	return nil
}

// Properties implements types.Module.
func (m *ForgeModule) Properties() (types.ModuleProperties, error) {
	expected := m.spec.Version
	if (expected == VersionAny || expected == VersionLatest) && m.resolved != "" {
		expected = m.resolved
	}
	return types.ModuleProperties{
		Kind:     types.ModuleKindForge,
		Expected: expected,
		Actual:   installedVersion(m.path),
	}, nil
}
