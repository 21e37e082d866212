package commands

import (
	"fmt"

	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/system"
	"github.com/spf13/cobra"
)

// tools the collectors shell out to, with the check each one serves
var verifyTools = []struct {
	name  string
	usage string
}{
	{"capsh", "capability check"},
	{"sudo", "sudo grant listing"},
	{"ping", "internet reachability"},
	{"ip", "interface addresses"},
	{"id", "group membership fallback"},
}

func (a *App) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the container sentinel and external tools",
		Long: `Check the prerequisites of an audit: the container sentinel file and the
optional external tools. Missing tools only degrade single checks; a
missing sentinel makes audit refuse to run, and verify exits 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerify(cmd)
		},
	}
}

func (a *App) runVerify(cmd *cobra.Command) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fail(ExitUsage, err)
	}
	out := a.Stdout
	runner := a.runner()

	fmt.Fprintln(out, "Verifying container audit prerequisites...")

	sentinel, inContainer := system.FindSentinel(cfg.Sentinels)
	if inContainer {
		fmt.Fprintf(out, "  [OK] Container sentinel: %s\n", sentinel)
	} else {
		fmt.Fprintf(out, "  [!!] Container sentinel: none of %v present\n", cfg.Sentinels)
	}

	osInfo := system.GetOSInfo(cmd.Context(), runner)
	fmt.Fprintf(out, "  Image: %s (%s)\n", osInfo.Distro, osInfo.System)
	if osInfo.Kernel != "" {
		fmt.Fprintf(out, "  Kernel: %s\n", osInfo.Kernel)
	}

	fmt.Fprintln(out, "\nChecking commands:")
	for _, tool := range verifyTools {
		if runner.Exists(tool.name) {
			fmt.Fprintf(out, "  [OK] %s\n", tool.name)
		} else {
			fmt.Fprintf(out, "  [--] %s (not found, %s degrades)\n", tool.name, tool.usage)
		}
	}
	fmt.Fprintf(out, "\nCapability source: %s\n", cfg.Capabilities.Source)

	if !inContainer {
		return fail(ExitPrecondition, errors.ErrNotInContainer)
	}
	fmt.Fprintln(out, "\nVerification complete!")
	return nil
}
