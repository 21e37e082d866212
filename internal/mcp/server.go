// Package mcp exposes the container audit as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/girste/containaudit/internal/audit"
	"github.com/girste/containaudit/internal/config"
	"github.com/girste/containaudit/internal/output"
	"github.com/girste/containaudit/internal/system"
	"github.com/girste/containaudit/internal/util"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Tool names
const (
	ToolAudit        = "container_audit"
	ToolPrecondition = "container_precondition"
)

// Server serves audit snapshots to an MCP client
type Server struct {
	cfg              *config.Config
	skipPrecondition bool
	runAudit         func(ctx context.Context) *audit.Report
	mcpServer        *server.MCPServer
	logger           *zap.Logger
}

// NewServer creates an MCP server backed by a fresh orchestrator per call.
func NewServer(cfg *config.Config, skipPrecondition bool, opts ...audit.Option) *Server {
	s := &Server{
		cfg:              cfg,
		skipPrecondition: skipPrecondition,
		logger:           util.NewLogger("mcp"),
	}
	s.runAudit = func(ctx context.Context) *audit.Report {
		return audit.NewOrchestrator(cfg, opts...).RunAudit(ctx)
	}

	s.mcpServer = server.NewMCPServer(
		"containaudit",
		util.Version,
		server.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	auditTool := mcpgo.NewTool(ToolAudit,
		mcpgo.WithDescription("Audit the isolation, privilege and network posture of the container this server runs in"),
		mcpgo.WithString("format",
			mcpgo.Description("Report format: json, yaml, text, sarif or prometheus (default json)"),
			mcpgo.Enum(output.FormatJSON, output.FormatYAML, output.FormatText, output.FormatSARIF, output.FormatProm),
		),
	)
	s.mcpServer.AddTool(auditTool, s.handleAudit)

	preconditionTool := mcpgo.NewTool(ToolPrecondition,
		mcpgo.WithDescription("Report whether the server runs inside a container (sentinel file present)"),
	)
	s.mcpServer.AddTool(preconditionTool, s.handlePrecondition)
}

// Serve blocks serving MCP over stdin/stdout
func (s *Server) Serve() error {
	s.logger.Info("Starting MCP server", zap.String("version", util.Version))
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleAudit(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	format := req.GetString("format", output.FormatJSON)
	formatter, err := output.NewFormatter(format, false)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if !s.skipPrecondition {
		if err := system.RequireContainer(s.cfg.Sentinels); err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
	}

	report := s.runAudit(ctx)
	data, err := formatter.Render(report)
	if err != nil {
		s.logger.Error("Failed to render report", zap.Error(err))
		return mcpgo.NewToolResultError(fmt.Sprintf("render report: %v", err)), nil
	}

	s.logger.Debug("Audit served", zap.String("run_id", report.RunID), zap.String("format", format))
	return mcpgo.NewToolResultText(string(data)), nil
}

func (s *Server) handlePrecondition(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if path, ok := system.FindSentinel(s.cfg.Sentinels); ok {
		return mcpgo.NewToolResultText(fmt.Sprintf("inside container: sentinel %s present", path)), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("not inside a container: none of %v present", s.cfg.Sentinels)), nil
}
