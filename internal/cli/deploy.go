package cli

import (
	"github.com/arthur-debert/envdeploy/pkg/engine"
	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/arthur-debert/envdeploy/pkg/output"
	"github.com/arthur-debert/envdeploy/pkg/types"
	"github.com/spf13/cobra"
)

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: MsgDeployShort,
	}
	cmd.AddCommand(newDeployEnvironmentCmd())
	cmd.AddCommand(newDisplayCmd())
	return cmd
}

func newDeployEnvironmentCmd() *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:     "environment [names...]",
		Aliases: []string{"env"},
		Short:   MsgDeployEnvShort,
		Long:    MsgDeployEnvLong,
		Example: MsgDeployEnvExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]interface{}{}
			if cmd.Flags().Changed("generate-types") {
				overrides["deploy.generate_types"] = flags.generateTypes
			}
			cfg, err := loadConfig(cmd, overrides)
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cmd, flags.format)
			if err != nil {
				return err
			}

			opts, err := engineOptions(cfg, flags)
			if err != nil {
				return err
			}
			eng, err := engine.New(newDeployment(cfg, flags.defaultBranchOverride), opts)
			if err != nil {
				return err
			}

			logger := logging.GetLogger("cli")
			logger.Info().
				Strs("environments", args).
				Bool("modules", flags.modules).
				Bool("no_force", flags.noForce).
				Msg("Starting deploy")

			res, err := eng.Run(cmd.Context(), args)
			if res != nil {
				if rerr := renderer.RenderRun(res); rerr != nil {
					return rerr
				}
			}
			if err != nil {
				return err
			}
			if !res.Success {
				return errors.New(errors.ErrDeployFailed, "deploy finished with failures")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flags.modules, "modules", false, "Also sync the modules of environments that already exist")
	cmd.Flags().BoolVar(&flags.modules, "puppetfile", false, "Alias of --modules")
	_ = cmd.Flags().MarkHidden("puppetfile")
	cmd.Flags().BoolVar(&flags.noForce, "no-force", false, "Keep local modifications of module checkouts")
	cmd.Flags().BoolVar(&flags.generateTypes, "generate-types", false, "Run the type generation command in every deployed environment")
	cmd.Flags().StringVar(&flags.defaultBranchOverride, "default-branch-override", "", "Branch for control branch modules whose branch does not exist")
	cmd.Flags().StringVar(&flags.format, "format", "auto", "Summary format: auto, term, text or json")
	return cmd
}

// locatedSource is implemented by sources that know their remote and base
// directory.
type locatedSource interface {
	Remote() string
	Basedir() string
}

func newDisplayCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "display",
		Short: MsgDisplayShort,
		Long:  MsgDisplayLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			renderer, err := newRenderer(cmd, format)
			if err != nil {
				return err
			}

			d := newDeployment(cfg, "")
			if err := d.Preload(cmd.Context()); err != nil {
				return err
			}
			return renderer.RenderInventory(inventory(d.Sources()))
		},
	}
	cmd.Flags().StringVar(&format, "format", "auto", "Output format: auto, term, text or json")
	return cmd
}

func inventory(sources []types.Source) output.Inventory {
	inv := output.Inventory{Sources: []output.SourceView{}}
	for _, src := range sources {
		view := output.SourceView{Name: src.Name(), Environments: []output.EnvironmentView{}}
		if located, ok := src.(locatedSource); ok {
			view.Remote = located.Remote()
			view.Basedir = located.Basedir()
		}
		for _, env := range src.Environments() {
			view.Environments = append(view.Environments, output.EnvironmentView{
				Name:      env.Name(),
				Dirname:   env.Dirname(),
				Path:      env.Path(),
				Status:    string(env.Status()),
				Signature: env.Signature(),
			})
		}
		inv.Sources = append(inv.Sources, view)
	}
	return inv
}
