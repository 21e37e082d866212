package commands

import (
	"fmt"

	"github.com/girste/containaudit/internal/util"
	"github.com/spf13/cobra"
)

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.Stdout, "containaudit version %s\n", util.Version)
		},
	}
}
