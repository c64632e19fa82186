// Package record writes the deploy record of an environment: a JSON
// summary of the last deploy kept at the root of the environment.
package record

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/paths"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Keys written by every deploy. Environment metadata with the same key is
// overridden.
const (
	KeyStartedAt     = "started_at"
	KeyFinishedAt    = "finished_at"
	KeyDeploySuccess = "deploy_success"
	KeyModuleDeploys = "module_deploys"
)

// ModuleDeploy is the record entry of one module. SHA is only set for git
// modules with a checkout.
type ModuleDeploy struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	SHA     *string `json:"sha"`
}

// Writer writes deploy records.
type Writer struct {
	fs     types.FS
	logger zerolog.Logger
}

// NewWriter creates a Writer.
func NewWriter(fsys types.FS) *Writer {
	return &Writer{fs: fsys, logger: logging.GetLogger("record")}
}

// Path returns the record location of env.
func Path(env types.Environment) string {
	return filepath.Join(env.Path(), paths.RecordFileName)
}

// CollectModules lists the modules of env for the record. It never fails:
// when the modules cannot be enumerated it logs and returns an empty list.
func (w *Writer) CollectModules(env types.Environment) []ModuleDeploy {
	deploys := []ModuleDeploy{}

	mods, err := env.Modules()
	if err != nil {
		w.logger.Warn().Err(err).Str("environment", env.Dirname()).
			Msg("Cannot enumerate modules for the deploy record")
		return deploys
	}

	for _, m := range mods {
		props, err := m.Properties()
		if err != nil {
			logger := logging.WithModule(w.logger, env.Dirname(), m.Name(), string(m.Origin()))
			logger.Warn().Err(err).Msg("Cannot read module properties for the deploy record")
			return []ModuleDeploy{}
		}
		entry := ModuleDeploy{Name: m.Name(), Version: props.Expected}
		if m.Origin() == types.ModuleKindGit && props.Actual != "" {
			sha := props.Actual
			entry.SHA = &sha
		}
		deploys = append(deploys, entry)
	}
	return deploys
}

// Build merges the environment metadata with the run fields.
func (w *Writer) Build(env types.Environment, startedAt, finishedAt time.Time, success bool) map[string]interface{} {
	rec := make(map[string]interface{})
	for k, v := range env.Info() {
		rec[k] = v
	}
	rec[KeyStartedAt] = startedAt.UTC().Format(time.RFC3339Nano)
	rec[KeyFinishedAt] = finishedAt.UTC().Format(time.RFC3339Nano)
	rec[KeyDeploySuccess] = success
	rec[KeyModuleDeploys] = w.CollectModules(env)
	return rec
}

// Write replaces the record of env. Readers see either the previous
// record or the new one, never a partial file.
func (w *Writer) Write(env types.Environment, startedAt, finishedAt time.Time, success bool) error {
	data, err := json.MarshalIndent(w.Build(env, startedAt, finishedAt, success), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrRecordWrite, "cannot encode deploy record").
			WithDetail("environment", env.Dirname())
	}
	data = append(data, '\n')

	if err := w.fs.MkdirAll(env.Path(), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrRecordWrite, "cannot create %s", env.Path()).
			WithDetail("environment", env.Dirname())
	}
	path := Path(env)
	if err := w.fs.WriteFileAtomic(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrRecordWrite, "cannot write %s", path).
			WithDetail("environment", env.Dirname())
	}
	w.logger.Debug().Str("path", path).Bool("success", success).Msg("Wrote deploy record")
	return nil
}

// Read loads the record of env, for display.
func Read(fsys types.FS, env types.Environment) (map[string]interface{}, error) {
	data, err := fsys.ReadFile(Path(env))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound, "no deploy record for %s", env.Dirname())
	}
	var rec map[string]interface{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid deploy record for %s", env.Dirname())
	}
	return rec, nil
}
