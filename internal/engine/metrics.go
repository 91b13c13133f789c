package engine

import (
	"sync"
	"time"
)

// MetricsSnapshot is a point-in-time copy of the engine counters.
type MetricsSnapshot struct {
	TotalExecutions      int64         `json:"total_executions"`
	SuccessfulExecutions int64         `json:"successful_executions"`
	FailedExecutions     int64         `json:"failed_executions"`
	CancelledExecutions  int64         `json:"cancelled_executions"`
	ActiveExecutions     int64         `json:"active_executions"`
	QueuedExecutions     int64         `json:"queued_executions"`
	TotalExecutionTime   time.Duration `json:"total_execution_time"`
	AvgExecutionTime     time.Duration `json:"avg_execution_time"`
}

// Metrics aggregates engine-wide execution counters. All methods are safe for
// concurrent use.
type Metrics struct {
	mu sync.Mutex

	total     int64
	succeeded int64
	failed    int64
	cancelled int64
	active    int64
	queued    int64
	totalTime time.Duration
}

// NewMetrics creates a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordQueued notes an execution waiting for an admission slot.
func (m *Metrics) RecordQueued() {
	m.mu.Lock()
	m.queued++
	m.mu.Unlock()
}

// RecordStart moves an execution from queued to active.
func (m *Metrics) RecordStart() {
	m.mu.Lock()
	if m.queued > 0 {
		m.queued--
	}
	m.active++
	m.mu.Unlock()
}

// RecordFinish records a completed run: its duration and terminal outcome.
func (m *Metrics) RecordFinish(duration time.Duration, success, cancelled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active > 0 {
		m.active--
	}
	m.total++
	m.totalTime += duration
	switch {
	case cancelled:
		m.cancelled++
	case success:
		m.succeeded++
	default:
		m.failed++
	}
}

// Snapshot returns a consistent copy of the counters. Average execution time
// is derived from the totals at read time.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		TotalExecutions:      m.total,
		SuccessfulExecutions: m.succeeded,
		FailedExecutions:     m.failed,
		CancelledExecutions:  m.cancelled,
		ActiveExecutions:     m.active,
		QueuedExecutions:     m.queued,
		TotalExecutionTime:   m.totalTime,
	}
	if m.total > 0 {
		snap.AvgExecutionTime = m.totalTime / time.Duration(m.total)
	}
	return snap
}

// Reset zeroes the cumulative counters. Active and queued gauges are left
// alone: they track in-flight work, not history.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = 0
	m.succeeded = 0
	m.failed = 0
	m.cancelled = 0
	m.totalTime = 0
}
