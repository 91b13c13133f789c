package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/helion-data/scanflow/internal/engine"
	"github.com/helion-data/scanflow/pkg/schema"
)

// handleRun executes a workflow definition and returns the execution record.
func (s *ScanflowServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wfRaw := mcp.ParseStringMap(req, "workflow", nil)
	if wfRaw == nil {
		return mcp.NewToolResultError("workflow is required"), nil
	}

	// Marshal then unmarshal to get a typed Workflow.
	wfBytes, err := json.Marshal(wfRaw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid workflow: %v", err)), nil
	}
	var wf schema.Workflow
	if err := json.Unmarshal(wfBytes, &wf); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid workflow: %v", err)), nil
	}

	opts := engine.Options{
		Inputs:    mcp.ParseStringMap(req, "inputs", nil),
		FailFast:  mcp.ParseBoolean(req, "fail_fast", false),
		MaxErrors: int(mcp.ParseFloat64(req, "max_errors", 0)),
	}
	if md := req.GetString("max_duration", ""); md != "" {
		d, err := time.ParseDuration(md)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid max_duration: %v", err)), nil
		}
		opts.MaxDuration = d
	}

	exec, runErr := s.engine.ExecuteWorkflow(ctx, &wf, opts)
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("execution failed to start: %v", runErr)), nil
	}

	return marshalResult(exec)
}

// handleExecution fetches or controls an execution.
func (s *ScanflowServer) handleExecution(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, err := req.RequireString("execution_id")
	if err != nil {
		return mcp.NewToolResultError("execution_id is required"), nil
	}
	action := req.GetString("action", "get")

	switch action {
	case "pause":
		if err := s.engine.Pause(executionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("pause failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"ok": true, "execution_id": executionID, "action": "pause"})
	case "resume":
		if err := s.engine.Resume(executionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("resume failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"ok": true, "execution_id": executionID, "action": "resume"})
	case "cancel":
		if err := s.engine.Cancel(executionID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", err)), nil
		}
		return marshalResult(map[string]any{"ok": true, "execution_id": executionID, "action": "cancel"})
	case "get":
		exec, getErr := s.engine.GetExecution(ctx, executionID)
		if getErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", getErr)), nil
		}
		return marshalResult(exec)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q", action)), nil
	}
}

// handleMetrics reads (and optionally resets) the engine counters.
func (s *ScanflowServer) handleMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.engine.Metrics()
	if mcp.ParseBoolean(req, "reset", false) {
		s.engine.ResetMetrics()
	}
	return marshalResult(snap)
}

// marshalResult serializes a value as an MCP text result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
