package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Empty(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	assert.Zero(t, snap.TotalExecutions)
	assert.Zero(t, snap.AvgExecutionTime)
}

func TestMetrics_RecordLifecycle(t *testing.T) {
	m := NewMetrics()
	m.RecordQueued()
	assert.EqualValues(t, 1, m.Snapshot().QueuedExecutions)

	m.RecordStart()
	snap := m.Snapshot()
	assert.EqualValues(t, 0, snap.QueuedExecutions)
	assert.EqualValues(t, 1, snap.ActiveExecutions)

	m.RecordFinish(2*time.Second, true, false)
	snap = m.Snapshot()
	assert.EqualValues(t, 0, snap.ActiveExecutions)
	assert.EqualValues(t, 1, snap.TotalExecutions)
	assert.EqualValues(t, 1, snap.SuccessfulExecutions)
	assert.EqualValues(t, 0, snap.FailedExecutions)
	assert.Equal(t, 2*time.Second, snap.TotalExecutionTime)
	assert.Equal(t, 2*time.Second, snap.AvgExecutionTime)
}

func TestMetrics_AverageOverRuns(t *testing.T) {
	m := NewMetrics()
	m.RecordQueued()
	m.RecordStart()
	m.RecordFinish(time.Second, true, false)
	m.RecordQueued()
	m.RecordStart()
	m.RecordFinish(3*time.Second, false, false)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.TotalExecutions)
	assert.EqualValues(t, 1, snap.SuccessfulExecutions)
	assert.EqualValues(t, 1, snap.FailedExecutions)
	assert.Equal(t, 2*time.Second, snap.AvgExecutionTime)
}

func TestMetrics_Cancelled(t *testing.T) {
	m := NewMetrics()
	m.RecordQueued()
	m.RecordStart()
	m.RecordFinish(time.Second, false, true)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.CancelledExecutions)
	assert.EqualValues(t, 0, snap.FailedExecutions)
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordQueued()
	m.RecordStart()
	m.RecordFinish(time.Second, true, false)

	m.Reset()
	snap := m.Snapshot()
	assert.Zero(t, snap.TotalExecutions)
	assert.Zero(t, snap.SuccessfulExecutions)
	assert.Zero(t, snap.TotalExecutionTime)
	assert.Zero(t, snap.AvgExecutionTime)
}

func TestMetrics_ResetKeepsInFlightGauges(t *testing.T) {
	m := NewMetrics()
	m.RecordQueued()
	m.RecordQueued()
	m.RecordStart()

	m.Reset()
	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.QueuedExecutions)
	assert.EqualValues(t, 1, snap.ActiveExecutions)

	// The surviving gauge still decrements cleanly when the run finishes.
	m.RecordFinish(time.Second, true, false)
	snap = m.Snapshot()
	assert.EqualValues(t, 0, snap.ActiveExecutions)
	assert.EqualValues(t, 1, snap.TotalExecutions)
}
