package engine

import (
	"time"

	"github.com/helion-data/scanflow/internal/resources"
	"github.com/helion-data/scanflow/pkg/schema"
)

// Execution is the structured record of one workflow run. ExecuteWorkflow
// always returns one, success or not, so callers inspect Status and Errors
// instead of a bare error.
type Execution struct {
	ID           string                 `json:"id"`
	WorkflowID   string                 `json:"workflow_id"`
	WorkflowName string                 `json:"workflow_name,omitempty"`
	Status       schema.ExecutionStatus `json:"status"`
	Success      bool                   `json:"success"`

	Steps        []*StepResult       `json:"steps"`
	Dependencies []*DependencyStatus `json:"dependencies,omitempty"`
	Outputs      map[string]any      `json:"outputs,omitempty"`
	Errors       []*schema.FlowError `json:"errors,omitempty"`
	Logs         []LogEntry          `json:"logs,omitempty"`

	Stats       ExecutionStats     `json:"stats"`
	Performance PerformanceMetrics `json:"performance"`
	Resources   *resources.Usage   `json:"resources,omitempty"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`

	CachedAt time.Time `json:"-"`
}

// clone returns a copy safe to hand to concurrent readers while the
// coordinator keeps mutating the live record. Slice and map headers are
// duplicated; step and dependency entries are copied by value. Errors and
// log entries are immutable once appended and stay shared.
func (e *Execution) clone() *Execution {
	cp := *e
	if e.Steps != nil {
		cp.Steps = make([]*StepResult, len(e.Steps))
		for i, s := range e.Steps {
			sc := *s
			cp.Steps[i] = &sc
		}
	}
	if e.Dependencies != nil {
		cp.Dependencies = make([]*DependencyStatus, len(e.Dependencies))
		for i, d := range e.Dependencies {
			dc := *d
			cp.Dependencies[i] = &dc
		}
	}
	cp.Errors = append([]*schema.FlowError(nil), e.Errors...)
	cp.Logs = append([]LogEntry(nil), e.Logs...)
	if e.Outputs != nil {
		cp.Outputs = make(map[string]any, len(e.Outputs))
		for k, v := range e.Outputs {
			cp.Outputs[k] = v
		}
	}
	return &cp
}

// StepResult is the outcome of one step within an execution.
type StepResult struct {
	StepID   string              `json:"step_id"`
	Name     string              `json:"name,omitempty"`
	Status   schema.StepStatus   `json:"status"`
	Outputs  map[string]any      `json:"outputs,omitempty"`
	Errors   []*schema.FlowError `json:"errors,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Retries  int                 `json:"retries"`

	StartTime time.Time     `json:"start_time,omitempty"`
	EndTime   time.Time     `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`

	Resources *resources.Usage `json:"resources,omitempty"`
}

// DependencyStatus tracks the readiness of one step's dependencies during a
// run. Dependencies naming unknown step ids count as satisfied.
type DependencyStatus struct {
	StepID      string    `json:"step_id"`
	DependsOn   []string  `json:"depends_on"`
	Satisfied   bool      `json:"satisfied"`
	WaitCount   int       `json:"wait_count"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ExecutionStats tallies step outcomes for one run.
type ExecutionStats struct {
	StepsTotal     int `json:"steps_total"`
	StepsSucceeded int `json:"steps_succeeded"`
	StepsFailed    int `json:"steps_failed"`
	StepsSkipped   int `json:"steps_skipped"`
}

// PerformanceMetrics summarizes step timing for one run.
type PerformanceMetrics struct {
	AvgStepDuration time.Duration `json:"avg_step_duration"`
	MinStepDuration time.Duration `json:"min_step_duration"`
	MaxStepDuration time.Duration `json:"max_step_duration"`
}

// LogEntry is one line of the per-execution structured log trail.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	StepID  string    `json:"step_id,omitempty"`
	Message string    `json:"message"`
}

// Options are per-run overrides supplied alongside the workflow.
type Options struct {
	// Inputs are workflow input parameters, visible to conditions and
	// transformations under "inputs".
	Inputs map[string]any

	// FailFast stops the run at the first step failure.
	FailFast bool

	// MaxErrors stops the run once this many steps have failed. Zero means
	// no limit.
	MaxErrors int

	// MaxDuration bounds the whole run. Checked between steps; zero falls
	// back to the engine's configured timeout.
	MaxDuration time.Duration

	// MaxRetries overrides the engine's per-step retry budget when non-nil.
	MaxRetries *int

	// Limits override the engine's resource ceilings for this run when
	// non-nil.
	Limits *schema.ResourceLimits
}

// Config holds engine-wide settings.
type Config struct {
	MaxConcurrentExecutions int                   `json:"max_concurrent_executions"`
	MaxRetries              int                   `json:"max_retries"`
	RetryDelay              time.Duration         `json:"retry_delay"`
	Timeout                 time.Duration         `json:"timeout"`
	CacheTimeout            time.Duration         `json:"cache_timeout"`
	Limits                  schema.ResourceLimits `json:"limits"`

	EnableCaching      bool `json:"enable_caching"`
	EnableAnalytics    bool `json:"enable_analytics"`
	EnableOptimization bool `json:"enable_optimization"`
	EnableMonitoring   bool `json:"enable_monitoring"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentExecutions: 10,
		MaxRetries:              3,
		RetryDelay:              time.Second,
		Timeout:                 5 * time.Minute,
		CacheTimeout:            time.Hour,
		Limits: schema.ResourceLimits{
			CPU:     80,
			Memory:  85,
			Network: 90,
			Disk:    90,
		},
		EnableCaching:    true,
		EnableMonitoring: true,
	}
}
