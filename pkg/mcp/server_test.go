package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helion-data/scanflow/internal/engine"
	"github.com/helion-data/scanflow/internal/resources"
)

func newTestServer(t *testing.T) *ScanflowServer {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.Limits.CPU = 0
	cfg.Limits.Memory = 0
	cfg.Limits.Network = 0
	cfg.Limits.Disk = 0
	cfg.EnableMonitoring = false

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng, err := engine.New(cfg,
		engine.WithLogger(logger),
		engine.WithUsageProvider(resources.NewStaticProvider(resources.Usage{CPU: 10})),
	)
	require.NoError(t, err)

	return NewScanflowServer(ScanflowServerDeps{Engine: eng, Logger: logger})
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func workflowArg() map[string]any {
	return map[string]any{
		"id":   "wf-1",
		"name": "scan",
		"steps": []any{
			map[string]any{
				"id": "a",
				"actions": []any{
					map[string]any{"kind": "default", "params": map[string]any{"value": 42}},
				},
			},
		},
	}
}

func TestNewScanflowServer(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.MCPServer())
	assert.Len(t, s.tools(), 3)
}

func TestHandleRun_Success(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleRun(context.Background(), callRequest(map[string]any{
		"workflow": workflowArg(),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var exec engine.Execution
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &exec))
	assert.Equal(t, "wf-1", exec.WorkflowID)
	assert.True(t, exec.Success)
	assert.Len(t, exec.Steps, 1)
}

func TestHandleRun_MissingWorkflow(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleRun(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleRun_InvalidMaxDuration(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleRun(context.Background(), callRequest(map[string]any{
		"workflow":     workflowArg(),
		"max_duration": "soon",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleRun_InvalidWorkflowReturnsRecord(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleRun(context.Background(), callRequest(map[string]any{
		"workflow": map[string]any{"id": "wf-broken"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var exec engine.Execution
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &exec))
	assert.False(t, exec.Success)
	assert.NotEmpty(t, exec.Errors)
}

func TestHandleExecution_Get(t *testing.T) {
	s := newTestServer(t)

	runRes, err := s.handleRun(context.Background(), callRequest(map[string]any{
		"workflow": workflowArg(),
	}))
	require.NoError(t, err)
	var exec engine.Execution
	require.NoError(t, json.Unmarshal([]byte(resultText(t, runRes)), &exec))

	res, err := s.handleExecution(context.Background(), callRequest(map[string]any{
		"execution_id": exec.ID,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got engine.Execution
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, exec.ID, got.ID)
}

func TestHandleExecution_MissingID(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleExecution(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleExecution_UnknownID(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleExecution(context.Background(), callRequest(map[string]any{
		"execution_id": "missing",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleExecution_ControlUnknownExecution(t *testing.T) {
	s := newTestServer(t)
	for _, action := range []string{"pause", "resume", "cancel"} {
		res, err := s.handleExecution(context.Background(), callRequest(map[string]any{
			"execution_id": "missing",
			"action":       action,
		}))
		require.NoError(t, err)
		assert.True(t, res.IsError, "action %q on unknown execution must error", action)
	}
}

func TestHandleExecution_UnknownAction(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleExecution(context.Background(), callRequest(map[string]any{
		"execution_id": "e1",
		"action":       "explode",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleMetrics_ReadAndReset(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleRun(context.Background(), callRequest(map[string]any{
		"workflow": workflowArg(),
	}))
	require.NoError(t, err)

	res, err := s.handleMetrics(context.Background(), callRequest(map[string]any{"reset": true}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var snap engine.MetricsSnapshot
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &snap))
	assert.EqualValues(t, 1, snap.TotalExecutions)

	// The reset applied after the read.
	res, err = s.handleMetrics(context.Background(), callRequest(nil))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &snap))
	assert.Zero(t, snap.TotalExecutions)
}
