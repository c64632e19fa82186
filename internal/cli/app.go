package cli

import (
	"path/filepath"

	"github.com/arthur-debert/envdeploy/pkg/command"
	"github.com/arthur-debert/envdeploy/pkg/config"
	"github.com/arthur-debert/envdeploy/pkg/deployment"
	"github.com/arthur-debert/envdeploy/pkg/engine"
	"github.com/arthur-debert/envdeploy/pkg/filesystem"
	"github.com/arthur-debert/envdeploy/pkg/git"
	"github.com/arthur-debert/envdeploy/pkg/manifest"
	"github.com/arthur-debert/envdeploy/pkg/module"
	"github.com/arthur-debert/envdeploy/pkg/output"
	"github.com/arthur-debert/envdeploy/pkg/registry"
	"github.com/arthur-debert/envdeploy/pkg/source"
	"github.com/spf13/cobra"
)

// deployFlags are the command line options of a deploy run.
type deployFlags struct {
	modules               bool
	noForce               bool
	generateTypes         bool
	defaultBranchOverride string
	format                string
}

func loadConfig(cmd *cobra.Command, overrides map[string]interface{}) (*config.Config, error) {
	file, _ := cmd.Root().PersistentFlags().GetString("config")
	return config.Load(config.LoadOptions{File: file, Overrides: overrides})
}

// newDeployment wires the sources of cfg. Module git repositories are
// mirrored below the cache directory next to the source mirrors.
func newDeployment(cfg *config.Config, branchOverride string) *deployment.Deployment {
	runner := git.NewCLI()
	fs := filesystem.NewOS()
	reg := registry.New(registry.Options{
		BaseURL: cfg.Registry.BaseURL,
		Retries: cfg.Registry.Retries,
		Timeout: cfg.Registry.Timeout,
	})
	cache := module.NewGitCache(filepath.Join(cfg.CacheDir, "modules"), runner)
	executor := command.NewExecutor("environment")

	var sources []deployment.Source
	for _, name := range cfg.SourceNames() {
		sources = append(sources, source.New(source.Options{
			Name:     name,
			Settings: cfg.Sources[name],
			CacheDir: cfg.CacheDir,
			Runner:   runner,
			FS:       fs,
			Manifest: manifest.Settings{
				Filenames: cfg.Manifest.Filenames,
				Moduledir: cfg.Manifest.Moduledir,
			},
			Modules: module.Options{
				BranchOverride: branchOverride,
				Cache:          cache,
				Registry:       reg,
				Runner:         runner,
			},
			GenerateTypesCommand: cfg.Deploy.GenerateTypesCommand,
			Executor:             executor,
		}))
	}
	return deployment.New(fs, sources...)
}

// engineOptions maps settings and flags onto the engine.
func engineOptions(cfg *config.Config, flags deployFlags) (engine.Options, error) {
	levels, err := config.ParsePurgeLevels(cfg.Deploy.PurgeLevels)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		PurgeLevels:           levels,
		PurgeAllowlist:        cfg.Deploy.PurgeAllowlist,
		PurgeWhitelist:        cfg.Deploy.PurgeWhitelist,
		GenerateTypes:         cfg.Deploy.GenerateTypes,
		Modules:               flags.modules,
		NoForce:               flags.noForce,
		DefaultBranchOverride: flags.defaultBranchOverride,
		Postrun:               cfg.Postrun,
		LockRoot:              cfg.CacheDir,
		WriteLock:             cfg.Deploy.WriteLock,
		ModuleWorkers:         cfg.Deploy.ModuleWorkers,
		FS:                    filesystem.NewOS(),
		Executor:              command.NewExecutor("hook"),
	}, nil
}

func newRenderer(cmd *cobra.Command, format string) (output.Renderer, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewRenderer(f, cmd.OutOrStdout())
}
