package manifest

import (
	stderrors "errors"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/module"
	"github.com/arthur-debert/envdeploy/pkg/purge"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Settings name the Deployfile candidates and the default module
// directory, relative to the environment path.
type Settings struct {
	Filenames []string
	Moduledir string
}

// Manifest is the module declaration of one environment.
type Manifest struct {
	fs       types.FS
	envPath  string
	settings Settings
	opts     module.Options

	file      string
	moduledir string
	modules   []types.Module
	loaded    bool
	loadErr   error
	logger    zerolog.Logger
}

// New creates the manifest of the environment at envPath. opts is the
// template for the modules it builds; Moduledir and EnvPath are filled in
// on Load.
func New(fsys types.FS, envPath string, settings Settings, opts module.Options) *Manifest {
	return &Manifest{
		fs:        fsys,
		envPath:   envPath,
		settings:  settings,
		opts:      opts,
		moduledir: filepath.Join(envPath, settings.Moduledir),
		logger:    logging.GetLogger("manifest").With().Str("path", envPath).Logger(),
	}
}

// File returns the Deployfile of the environment, or "" when there is
// none.
func (m *Manifest) File() string {
	for _, name := range m.settings.Filenames {
		path := filepath.Join(m.envPath, name)
		if _, err := m.fs.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Exists reports whether the environment has a Deployfile.
func (m *Manifest) Exists() bool {
	return m.File() != ""
}

// Moduledir returns the default module directory.
func (m *Manifest) Moduledir() string {
	return m.moduledir
}

// Load implements types.Manifest. A missing Deployfile declares no modules.
// The outcome is kept until the next Load or Invalidate.
func (m *Manifest) Load(branchOverride string) error {
	m.loadErr = m.load(branchOverride)
	m.loaded = true
	return m.loadErr
}

// Invalidate forgets the loaded declaration, the next use reads the
// Deployfile again.
func (m *Manifest) Invalidate() {
	m.loaded = false
	m.loadErr = nil
	m.modules = nil
}

// Declared returns the declared modules, loading the Deployfile first if
// needed. A Deployfile that could not be read is an error every time.
func (m *Manifest) Declared() ([]types.Module, error) {
	if !m.loaded {
		if err := m.Load(""); err != nil {
			return nil, err
		}
	}
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.modules, nil
}

func (m *Manifest) load(branchOverride string) error {
	m.modules = nil
	m.moduledir = filepath.Join(m.envPath, m.settings.Moduledir)
	m.file = m.File()
	if m.file == "" {
		m.logger.Debug().Msg("No Deployfile, no modules to load")
		return nil
	}

	data, err := m.fs.ReadFile(m.file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrManifestLoad, "failed to read %s", m.file).
			WithDetail("file", m.file)
	}
	doc, err := parse(m.file, data)
	if err != nil {
		return err
	}

	if doc.Moduledir != "" {
		m.moduledir = doc.Moduledir
		if !filepath.IsAbs(m.moduledir) {
			m.moduledir = filepath.Join(m.envPath, m.moduledir)
		}
	}

	opts := m.opts
	opts.Moduledir = m.moduledir
	opts.EnvPath = m.envPath
	opts.BranchOverride = branchOverride

	seen := make(map[string]string)
	modules := make([]types.Module, 0, len(doc.Modules))
	for _, decl := range doc.Modules {
		spec, err := decl.spec()
		if err != nil {
			return errors.Wrapf(err, errors.ErrManifestLoad, "invalid declaration in %s", m.file).
				WithDetail("file", m.file)
		}
		mod, err := module.New(spec, opts)
		if err != nil {
			return errors.Wrapf(err, errors.ErrManifestLoad, "invalid declaration in %s", m.file).
				WithDetail("file", m.file)
		}
		if other, dup := seen[mod.Path()]; dup {
			return errors.Newf(errors.ErrManifestLoad, "modules %s and %s both install into %s", other, spec.Name, mod.Path()).
				WithDetail("file", m.file)
		}
		seen[mod.Path()] = spec.Name
		modules = append(modules, mod)
	}
	m.modules = modules

	m.logger.Debug().Str("file", m.file).Int("modules", len(modules)).Msg("Loaded Deployfile")
	return nil
}

// Modules implements types.Manifest.
func (m *Manifest) Modules() []types.Module {
	return m.modules
}

// ManagedDirs returns the directories modules are installed into: the
// module directory and every install_path in use, sorted. The environment
// root itself is never managed here.
func (m *Manifest) ManagedDirs() []string {
	dirs := map[string]bool{m.moduledir: true}
	for _, mod := range m.modules {
		dirs[filepath.Dir(mod.Path())] = true
	}
	out := make([]string, 0, len(dirs))
	for dir := range dirs {
		if filepath.Clean(dir) == filepath.Clean(m.envPath) {
			continue
		}
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

// Purge implements types.Manifest. Anything in a managed directory that
// is not a declared module is removed. Nothing is removed when the
// Deployfile could not be read.
func (m *Manifest) Purge() error {
	if _, err := m.Declared(); err != nil {
		return errors.Wrap(err, errors.ErrPurge, "cannot purge modules without a readable Deployfile").
			WithDetail("path", m.envPath)
	}

	var desired []string
	for _, mod := range m.modules {
		desired = append(desired, mod.Path())
	}

	purger := purge.New(m.fs)
	var failures []error
	for _, dir := range m.ManagedDirs() {
		removed, err := purger.Purge(purge.Plan{Root: dir, Desired: desired, NoRecurse: desired})
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if len(removed) > 0 {
			m.logger.Info().Str("dir", dir).Int("removed", len(removed)).Msg("Purged unmanaged modules")
		}
	}
	if len(failures) > 0 {
		return errors.Wrap(stderrors.Join(failures...), errors.ErrPurge, "failed to purge module directories").
			WithDetail("path", m.envPath)
	}
	return nil
}
