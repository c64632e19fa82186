package manifest

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/module"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a Deployfile.
type document struct {
	Moduledir string        `yaml:"moduledir" toml:"moduledir"`
	Modules   []declaration `yaml:"modules" toml:"modules"`
}

type declaration struct {
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`

	Git           string `yaml:"git" toml:"git"`
	Ref           string `yaml:"ref" toml:"ref"`
	Branch        string `yaml:"branch" toml:"branch"`
	Tag           string `yaml:"tag" toml:"tag"`
	Commit        string `yaml:"commit" toml:"commit"`
	DefaultBranch string `yaml:"default_branch" toml:"default_branch"`

	Local       bool   `yaml:"local" toml:"local"`
	InstallPath string `yaml:"install_path" toml:"install_path"`
}

func parse(path string, data []byte) (*document, error) {
	var doc document
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad, "failed to parse %s", path).
			WithDetail("file", path)
	}
	return &doc, nil
}

// spec turns a declaration into a module spec. Exactly one of git, local
// or a registry name is expected, and a git module takes at most one of
// ref, branch, tag and commit.
func (d declaration) spec() (module.Spec, error) {
	spec := module.Spec{
		Name:          d.Name,
		Version:       d.Version,
		InstallPath:   d.InstallPath,
		DefaultBranch: d.DefaultBranch,
	}
	if d.Name == "" {
		return spec, errors.New(errors.ErrManifestLoad, "module declaration without a name")
	}

	switch {
	case d.Git != "" && d.Local:
		return spec, errors.Newf(errors.ErrManifestLoad, "module %s is both git and local", d.Name).
			WithDetail("module", d.Name)
	case d.Git != "":
		spec.Kind = types.ModuleKindGit
		spec.Git = d.Git
		var refs []string
		for _, r := range []string{d.Ref, d.Branch, d.Tag, d.Commit} {
			if r != "" {
				refs = append(refs, r)
			}
		}
		if len(refs) > 1 {
			return spec, errors.Newf(errors.ErrManifestLoad, "module %s declares more than one ref", d.Name).
				WithDetail("module", d.Name)
		}
		if len(refs) == 1 {
			spec.Ref = refs[0]
		}
	case d.Local:
		spec.Kind = types.ModuleKindLocal
	default:
		spec.Kind = types.ModuleKindForge
	}
	return spec, nil
}
