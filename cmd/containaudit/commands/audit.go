package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/errors"
	"github.com/girste/containaudit/internal/metrics"
	"github.com/girste/containaudit/internal/output"
	"github.com/girste/containaudit/internal/system"
	"github.com/spf13/cobra"
)

type auditOptions struct {
	format           string
	outputFile       string
	color            string
	skipPrecondition bool
}

func addAuditFlags(cmd *cobra.Command, opts *auditOptions) {
	cmd.Flags().StringVarP(&opts.format, "format", "f", output.FormatText, "Output format: text, json, yaml, sarif, prometheus")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVar(&opts.color, "color", output.ColorAuto, "Color mode for text output: auto, always, never")
	cmd.Flags().BoolVar(&opts.skipPrecondition, "skip-precondition", false, "Run even when no container sentinel is present (debugging only)")
}

func (a *App) auditCommand() *cobra.Command {
	opts := &auditOptions{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the container audit",
		Long: `Run the isolation, privilege and network checks and print the report.

The audit refuses to run (exit 1) unless a container sentinel file such as
/.dockerenv exists. Findings never change the exit code.`,
		Example: `    containaudit audit
    containaudit audit --format=json --output=report.json
    containaudit audit --format=sarif > containaudit.sarif
    containaudit audit --format=prometheus -o /var/lib/node_exporter/containaudit.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAudit(cmd.Context(), opts)
		},
	}
	addAuditFlags(cmd, opts)
	return cmd
}

func (a *App) runAudit(ctx context.Context, opts *auditOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fail(ExitUsage, err)
	}

	color, err := a.resolveColor(opts)
	if err != nil {
		return fail(ExitUsage, err)
	}
	formatter, err := output.NewFormatter(opts.format, color)
	if err != nil {
		return fail(ExitUsage, err)
	}

	if !opts.skipPrecondition {
		if err := system.RequireContainer(cfg.Sentinels); err != nil {
			return fail(ExitPrecondition, err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := audit.NewOrchestrator(cfg, a.auditOptions()...).RunAudit(ctx)

	if opts.outputFile != "" && opts.format == output.FormatProm {
		if err := metrics.WriteTextfile(opts.outputFile, report); err != nil {
			return fail(ExitUsage, err)
		}
		return nil
	}

	if opts.outputFile != "" {
		data, err := formatter.Render(report)
		if err != nil {
			return fail(ExitUsage, err)
		}
		if err := os.WriteFile(opts.outputFile, data, 0644); err != nil {
			return fail(ExitUsage, errors.Wrap(err, "write output file"))
		}
		return nil
	}

	if err := formatter.Write(a.Stdout, report); err != nil {
		return fail(ExitUsage, err)
	}
	return nil
}

// resolveColor picks the color mode; auto never colors a file or a
// non-terminal writer.
func (a *App) resolveColor(opts *auditOptions) (bool, error) {
	out, _ := a.Stdout.(*os.File)
	if opts.outputFile != "" {
		out = nil
	}
	return output.UseColor(opts.color, out)
}
