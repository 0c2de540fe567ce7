package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"qvox/internal/common/fsutil"
	"qvox/internal/config"
	"qvox/internal/supervisor"
)

func buildConfigCmd(cfg *Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the qvox configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("config requires a subcommand: path|show|init")
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			state := "missing, using defaults"
			if fsutil.PathExists(path) {
				state = "exists"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, state)
			return nil
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:     "show",
		Short:   "Print the effective configuration",
		Example: "  qvox config show --format yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			b, err := config.Marshal(c, "."+format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	showCmd.Flags().StringVar(&format, "format", "toml", "Output format: toml|yaml|json")

	var force, usePython bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.ConfigPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if fsutil.PathExists(path) && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			d := config.Default()
			if usePython {
				py, err := supervisor.FindPython()
				if err != nil {
					return err
				}
				d.Server.Python = py
			}
			if err := config.Save(path, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	initCmd.Flags().BoolVar(&usePython, "python", false, "Launch the backend with the python found on PATH instead of uv")

	configCmd.AddCommand(pathCmd, showCmd, initCmd)
	return configCmd
}
