// Package mcpserver exposes the scanner over the Model Context
// Protocol so agents can request scans and language detection.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/user/sastbridge/pkg/config"
	"github.com/user/sastbridge/pkg/detect"
	"github.com/user/sastbridge/pkg/pipeline"
)

// New creates an MCP server with the scan tools registered.
func New(cfg *config.Config, log *zap.SugaredLogger) *server.MCPServer {
	s := server.NewMCPServer(
		"sastbridge",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	registerTools(s, cfg, log)
	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func registerTools(s *server.MCPServer, cfg *config.Config, log *zap.SugaredLogger) {
	s.AddTool(
		mcplib.NewTool("sastbridge_scan",
			mcplib.WithDescription("Run the full multi-tool security scan on a project and return the scan summary as JSON. SARIF reports are written to the output directory."),
			mcplib.WithString("project",
				mcplib.Required(),
				mcplib.Description("Absolute path to the project to scan"),
			),
			mcplib.WithString("output",
				mcplib.Required(),
				mcplib.Description("Directory to write SARIF reports into"),
			),
		),
		handleScan(cfg, log),
	)

	s.AddTool(
		mcplib.NewTool("sastbridge_languages",
			mcplib.WithDescription("Detect the supported programming languages present in a project"),
			mcplib.WithString("project",
				mcplib.Required(),
				mcplib.Description("Absolute path to the project to inspect"),
			),
		),
		handleLanguages(),
	)
}

func handleScan(cfg *config.Config, log *zap.SugaredLogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		project, err := request.RequireString("project")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		output, err := request.RequireString("output")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		summary, err := pipeline.New(cfg, log).Run(ctx, project, output)
		if err != nil {
			return errorResult(fmt.Sprintf("scan failed: %v", err)), nil
		}
		return jsonResult(summary)
	}
}

func handleLanguages() server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		project, err := request.RequireString("project")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		return jsonResult(map[string]any{"languages": detect.Languages(project)})
	}
}

func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
