package module

import (
	"context"

	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/types"
)

// localVersion is reported for local modules without release metadata.
const localVersion = "local"

// LocalModule is a directory shipped with the environment itself. It is
// declared so that manifest purges keep it, and is never synced.
type LocalModule struct {
	spec Spec
	path string
}

func newLocalModule(spec Spec, path string) *LocalModule {
	return &LocalModule{spec: spec, path: path}
}

func (m *LocalModule) Name() string             { return m.spec.Name }
func (m *LocalModule) Origin() types.ModuleKind { return types.ModuleKindLocal }
func (m *LocalModule) Path() string             { return m.path }

func (m *LocalModule) Sync(ctx context.Context, force bool) error {
	logger := logging.WithModule(logging.GetLogger("module"), "", m.spec.Name, string(types.ModuleKindLocal))
	logger.Debug().Msg("Local module, nothing to sync")
	return nil
}

func (m *LocalModule) Properties() (types.ModuleProperties, error) {
	version := installedVersion(m.path)
	if version == "" {
		version = localVersion
	}
	return types.ModuleProperties{Kind: types.ModuleKindLocal, Expected: version, Actual: version}, nil
}
