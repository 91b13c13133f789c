package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	s, err := NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "scanflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func record(id, workflowID string, success bool, start time.Time) *ExecutionRecord {
	end := start.Add(2 * time.Second)
	status := "completed"
	if !success {
		status = "failed"
	}
	return &ExecutionRecord{
		ID:         id,
		WorkflowID: workflowID,
		Status:     status,
		Success:    success,
		StartTime:  start,
		EndTime:    end,
		DurationMs: 2000,
		Payload:    []byte(`{"id":"` + id + `"}`),
	}
}

func TestLibSQLStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("e1", "wf-1", true, time.Now().UTC())
	require.NoError(t, s.SaveExecution(ctx, rec))

	got, err := s.GetExecution(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.Equal(t, "completed", got.Status)
	assert.True(t, got.Success)
	assert.EqualValues(t, 2000, got.DurationMs)
	assert.JSONEq(t, `{"id":"e1"}`, string(got.Payload))
}

func TestLibSQLStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetExecution(context.Background(), "nope")
	assert.Error(t, err)
}

func TestLibSQLStore_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := record("e1", "wf-1", false, time.Now().UTC())
	require.NoError(t, s.SaveExecution(ctx, rec))

	rec.Status = "completed"
	rec.Success = true
	require.NoError(t, s.SaveExecution(ctx, rec))

	got, err := s.GetExecution(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, "completed", got.Status)
}

func TestLibSQLStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveExecution(ctx, record("old", "wf-1", true, now.Add(-time.Hour))))
	require.NoError(t, s.SaveExecution(ctx, record("new", "wf-1", true, now)))
	require.NoError(t, s.SaveExecution(ctx, record("other", "wf-2", true, now)))

	recs, err := s.ListExecutions(ctx, "wf-1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "new", recs[0].ID)
	assert.Equal(t, "old", recs[1].ID)

	all, err := s.ListExecutions(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListExecutions(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestLibSQLStore_WorkflowStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveExecution(ctx, record("e1", "wf-1", true, now.Add(-2*time.Minute))))
	require.NoError(t, s.SaveExecution(ctx, record("e2", "wf-1", true, now.Add(-time.Minute))))
	require.NoError(t, s.SaveExecution(ctx, record("e3", "wf-1", false, now)))

	stats, err := s.WorkflowStats(ctx, "wf-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Runs)
	assert.EqualValues(t, 2, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Failed)
	assert.InDelta(t, 2000, stats.AvgDurationMs, 0.1)
}

func TestLibSQLStore_WorkflowStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	stats, err := s.WorkflowStats(context.Background(), "never-ran")
	require.NoError(t, err)
	assert.Zero(t, stats.Runs)
	assert.Zero(t, stats.AvgDurationMs)
}

func TestLibSQLStore_PruneBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveExecution(ctx, record("stale", "wf-1", true, now.Add(-48*time.Hour))))
	require.NoError(t, s.SaveExecution(ctx, record("fresh", "wf-1", true, now)))

	n, err := s.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.GetExecution(ctx, "stale")
	assert.Error(t, err)
	_, err = s.GetExecution(ctx, "fresh")
	assert.NoError(t, err)
}

func TestLibSQLStore_MigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLStatements_DropsCommentOnlyFragments(t *testing.T) {
	script := `-- header comment
CREATE TABLE a (id TEXT PRIMARY KEY);

-- a fragment holding nothing but this comment
;
CREATE INDEX idx_a ON a(id);`

	stmts := sqlStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Contains(t, stmts[1], "CREATE INDEX idx_a")
}
