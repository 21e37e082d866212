package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/girste/containaudit/internal/mcp"
	"github.com/spf13/cobra"
)

func (a *App) serveCommand() *cobra.Command {
	var skipPrecondition bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start an MCP server on stdin/stdout so an assistant running next to the
container can request audit snapshots.

TOOLS:
    container_audit          Run the audit (format: json, yaml, text, sarif, prometheus)
    container_precondition   Report whether a container sentinel is present`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(skipPrecondition)
		},
	}
	cmd.Flags().BoolVar(&skipPrecondition, "skip-precondition", false, "Serve audits even when no container sentinel is present")
	return cmd
}

func (a *App) runServe(skipPrecondition bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fail(ExitUsage, err)
	}

	server := mcp.NewServer(cfg, skipPrecondition, a.auditOptions()...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve()
	}()

	select {
	case sig := <-sigChan:
		fmt.Fprintf(a.Stderr, "\nReceived %s signal, shutting down...\n", sig)
		return nil
	case err := <-errChan:
		if err != nil {
			return fail(ExitPrecondition, fmt.Errorf("server error: %w", err))
		}
		return nil
	}
}
