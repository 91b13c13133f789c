package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helion-data/scanflow/internal/engine"
)

// ScanflowServerDeps holds the dependencies for creating a ScanflowServer.
type ScanflowServerDeps struct {
	Engine *engine.Engine
	Logger *slog.Logger
}

// ScanflowServer wraps an MCP server with scanflow-specific tool handlers.
type ScanflowServer struct {
	engine    *engine.Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewScanflowServer creates a new ScanflowServer with all tools registered.
func NewScanflowServer(deps ScanflowServerDeps) *ScanflowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &ScanflowServer{
		engine: deps.Engine,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"scanflow",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Scanflow executes scan and validation workflows. Use scanflow.run to execute a workflow definition, scanflow.execution to fetch an execution record or control a running one, and scanflow.metrics to read the engine counters."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *ScanflowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *ScanflowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *ScanflowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: executionTool(), Handler: s.handleExecution},
		{Tool: metricsTool(), Handler: s.handleMetrics},
	}
}

// --- Tool definitions ---

func runTool() mcp.Tool {
	return mcp.NewTool("scanflow.run",
		mcp.WithDescription("Execute a workflow definition and return the structured execution record"),
		mcp.WithObject("workflow", mcp.Required(), mcp.Description("Workflow definition: id, name, steps")),
		mcp.WithObject("inputs", mcp.Description("Workflow input parameters")),
		mcp.WithBoolean("fail_fast", mcp.Description("Stop at the first step failure")),
		mcp.WithNumber("max_errors", mcp.Description("Stop once this many steps have failed (0 = no limit)")),
		mcp.WithString("max_duration", mcp.Description("Overall run budget, e.g. \"5m\"")),
	)
}

func executionTool() mcp.Tool {
	return mcp.NewTool("scanflow.execution",
		mcp.WithDescription("Fetch an execution record, or pause/resume/cancel a running execution"),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("ID of the execution")),
		mcp.WithString("action", mcp.Enum("get", "pause", "resume", "cancel"),
			mcp.Description("Operation to perform (default: get)")),
	)
}

func metricsTool() mcp.Tool {
	return mcp.NewTool("scanflow.metrics",
		mcp.WithDescription("Read or reset the engine execution counters"),
		mcp.WithBoolean("reset", mcp.Description("Zero the cumulative counters after reading")),
	)
}
