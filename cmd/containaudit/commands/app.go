// Package commands implements the containaudit command line.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/log"
	"github.com/girste/containaudit/internal/system"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitOK           = 0
	ExitPrecondition = 1 // not running inside a container
	ExitUsage        = 2 // bad flags, bad config or output failure
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	return &exitError{code: code, err: err}
}

// App holds the streams and collaborators of one CLI invocation.
type App struct {
	Stdout       io.Writer
	Stderr       io.Writer
	Runner       system.Runner
	AuditOptions []audit.Option

	configPath string
	debug      bool
}

// NewApp creates an App bound to the process streams
func NewApp() *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Runner: system.ExecRunner{},
	}
}

// Run executes the command line and returns the process exit code.
func (a *App) Run(args []string) int {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(a.Stderr, "Error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitUsage
}

func (a *App) rootCommand() *cobra.Command {
	opts := &auditOptions{}

	root := &cobra.Command{
		Use:   "containaudit",
		Short: "Container isolation, privilege and network audit",
		Long: `containaudit audits the security posture of the container it runs in.

It checks kernel isolation (namespaces, cgroup controllers, capabilities),
privilege state (uid/gid, privileged group membership, sudo grants) and
network exposure (connectivity, resolver, interface addresses, listening
ports 1-1023 on localhost), and prints one OK/WARN/ERROR/INFO line per check.

Running without a subcommand is the same as "containaudit audit".

EXIT CODES:
    0  Audit completed (regardless of findings)
    1  Not running inside a container (sentinel file missing)
    2  Invalid flags or configuration, or the report could not be written

CONFIGURATION:
    Config file locations (in order of priority):
    - $CONTAINAUDIT_CONFIG_DIR/.containaudit.yaml
    - .containaudit.yaml (current directory)
    - ~/.containaudit.yaml (home directory)
    - /etc/containaudit/config.yaml (system-wide)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.debug {
				log.SetLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAudit(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: search path)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	addAuditFlags(root, opts)

	root.AddCommand(
		a.auditCommand(),
		a.verifyCommand(),
		a.initConfigCommand(),
		a.serveCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *App) loadConfig() (*config.Config, error) {
	if a.configPath != "" {
		return config.LoadFile(a.configPath)
	}
	return config.Load()
}

func (a *App) runner() system.Runner {
	if a.Runner == nil {
		return system.ExecRunner{}
	}
	return a.Runner
}

// auditOptions returns the orchestrator options for this invocation
func (a *App) auditOptions() []audit.Option {
	return append([]audit.Option{audit.WithRunner(a.runner())}, a.AuditOptions...)
}
