package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/helion-data/scanflow/pkg/schema"
)

// ExecutionRecord is the persisted form of one finished execution. Payload
// carries the full engine record as JSON; the flat columns exist for
// filtering and reporting without deserializing everything.
type ExecutionRecord struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflow_id"`
	Status     string          `json:"status"`
	Success    bool            `json:"success"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	DurationMs int64           `json:"duration_ms"`
	Payload    json.RawMessage `json:"payload"`
}

// WorkflowStats is an aggregate over the stored history of one workflow.
type WorkflowStats struct {
	WorkflowID    string  `json:"workflow_id"`
	Runs          int64   `json:"runs"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// Store is the persistent execution history backend.
type Store interface {
	SaveExecution(ctx context.Context, rec *ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*ExecutionRecord, error)
	ListExecutions(ctx context.Context, workflowID string, limit int) ([]*ExecutionRecord, error)
	WorkflowStats(ctx context.Context, workflowID string) (*WorkflowStats, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Migrate(ctx context.Context) error
	Close() error
}

func notFound(kind, id string) error {
	return schema.NewErrorf(schema.ErrKindExecution, "%s %q not found in history", kind, id)
}
