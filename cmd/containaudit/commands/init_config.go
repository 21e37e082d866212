package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/util"
	"github.com/spf13/cobra"
)

const configHeader = "# containaudit configuration\n# Generated by containaudit init-config; every field shows its default.\n\n"

func (a *App) initConfigCommand() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = filepath.Join(util.ConfigDir(), "config.yaml")
			}
			return a.writeDefaultConfig(path, force)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Destination file (default: config dir/config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func (a *App) writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fail(ExitUsage, errors.New("%s already exists (use --force to overwrite)", path))
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return fail(ExitUsage, errors.Wrap(err, "marshal default config"))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fail(ExitUsage, errors.Wrap(err, "create config directory"))
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0644); err != nil {
		return fail(ExitUsage, errors.Wrap(err, "write config"))
	}

	fmt.Fprintf(a.Stdout, "Config written to %s\n", path)
	return nil
}
