package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ExecutionID(ctx))
	assert.Empty(t, WorkflowID(ctx))
	assert.Empty(t, StepID(ctx))

	ctx = WithExecutionID(ctx, "e1")
	ctx = WithWorkflowID(ctx, "w1")
	ctx = WithStepID(ctx, "s1")

	assert.Equal(t, "e1", ExecutionID(ctx))
	assert.Equal(t, "w1", WorkflowID(ctx))
	assert.Equal(t, "s1", StepID(ctx))
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithStepID(WithWorkflowID(WithExecutionID(context.Background(), "e1"), "w1"), "s1")
	logger.InfoContext(ctx, "step completed")

	out := buf.String()
	assert.Contains(t, out, `"execution_id":"e1"`)
	assert.Contains(t, out, `"workflow_id":"w1"`)
	assert.Contains(t, out, `"step_id":"s1"`)
}

func TestCorrelationHandler_NoIDsNoAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil)))

	logger.InfoContext(context.Background(), "plain record")

	out := buf.String()
	assert.NotContains(t, out, "execution_id")
	assert.NotContains(t, out, "workflow_id")
	assert.NotContains(t, out, "step_id")
}

func TestCorrelationHandler_WithAttrsPreservesInjection(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewJSONHandler(&buf, nil))).
		With(slog.String("component", "engine"))

	logger.InfoContext(WithExecutionID(context.Background(), "e1"), "hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"engine"`)
	assert.Contains(t, out, `"execution_id":"e1"`)
}
