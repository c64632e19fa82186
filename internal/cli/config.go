package cli

import (
	"fmt"

	"github.com/arthur-debert/envdeploy/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: MsgConfigShort,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: MsgConfigDefaultsShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprint(cmd.OutOrStdout(), config.DefaultsContent())
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: MsgConfigShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, MsgSettingsFile, cfg.File)
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(settingsView(cfg)); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}

// settingsView is cfg keyed like the settings file.
func settingsView(cfg *config.Config) map[string]interface{} {
	sources := make(map[string]interface{}, len(cfg.Sources))
	for name, src := range cfg.Sources {
		sources[name] = map[string]interface{}{
			"remote":                 src.Remote,
			"basedir":                src.Basedir,
			"prefix":                 src.Prefix,
			"invalid_branches":       src.InvalidBranches,
			"ignore_branch_prefixes": src.IgnoreBranchPrefixes,
		}
	}
	return map[string]interface{}{
		"cachedir": cfg.CacheDir,
		"sources":  sources,
		"deploy": map[string]interface{}{
			"purge_levels":           cfg.Deploy.PurgeLevels,
			"purge_allowlist":        cfg.Deploy.PurgeAllowlist,
			"purge_whitelist":        cfg.Deploy.PurgeWhitelist,
			"generate_types":         cfg.Deploy.GenerateTypes,
			"generate_types_command": []string(cfg.Deploy.GenerateTypesCommand),
			"write_lock":             cfg.Deploy.WriteLock,
			"module_workers":         cfg.Deploy.ModuleWorkers,
		},
		"manifest": map[string]interface{}{
			"filenames": cfg.Manifest.Filenames,
			"moduledir": cfg.Manifest.Moduledir,
		},
		"registry": map[string]interface{}{
			"baseurl": cfg.Registry.BaseURL,
			"retries": cfg.Registry.Retries,
			"timeout": cfg.Registry.Timeout.String(),
		},
		"postrun": []string(cfg.Postrun),
	}
}
