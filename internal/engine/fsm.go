package engine

import (
	"github.com/helion-data/scanflow/pkg/schema"
)

// ValidExecutionTransitions defines the allowed lifecycle transitions for an
// execution. pending -> failed covers validation and admission rejections.
var ValidExecutionTransitions = map[schema.ExecutionStatus][]schema.ExecutionStatus{
	schema.ExecutionStatusPending:   {schema.ExecutionStatusRunning, schema.ExecutionStatusFailed, schema.ExecutionStatusCancelled},
	schema.ExecutionStatusRunning:   {schema.ExecutionStatusPaused, schema.ExecutionStatusCompleted, schema.ExecutionStatusFailed, schema.ExecutionStatusCancelled},
	schema.ExecutionStatusPaused:    {schema.ExecutionStatusRunning, schema.ExecutionStatusFailed, schema.ExecutionStatusCancelled},
	schema.ExecutionStatusCompleted: {},
	schema.ExecutionStatusFailed:    {},
	schema.ExecutionStatusCancelled: {},
}

// ValidStepTransitions defines the allowed lifecycle transitions for a step.
// running <-> retrying loops until the retry budget is spent.
var ValidStepTransitions = map[schema.StepStatus][]schema.StepStatus{
	schema.StepStatusPending:   {schema.StepStatusRunning, schema.StepStatusSkipped, schema.StepStatusCancelled},
	schema.StepStatusRunning:   {schema.StepStatusRetrying, schema.StepStatusCompleted, schema.StepStatusFailed, schema.StepStatusCancelled},
	schema.StepStatusRetrying:  {schema.StepStatusRunning, schema.StepStatusFailed, schema.StepStatusCancelled},
	schema.StepStatusCompleted: {},
	schema.StepStatusFailed:    {},
	schema.StepStatusSkipped:   {},
	schema.StepStatusCancelled: {},
}

// CanTransitionExecution reports whether from -> to is an allowed execution
// transition.
func CanTransitionExecution(from, to schema.ExecutionStatus) bool {
	for _, allowed := range ValidExecutionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionStep reports whether from -> to is an allowed step transition.
func CanTransitionStep(from, to schema.StepStatus) bool {
	for _, allowed := range ValidStepTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionExecution validates and applies an execution status change on the
// record. Invalid transitions leave the record untouched and return an error.
func TransitionExecution(exec *Execution, to schema.ExecutionStatus) error {
	if !CanTransitionExecution(exec.Status, to) {
		return schema.NewErrorf(schema.ErrKindSystem,
			"invalid execution transition: %s -> %s", exec.Status, to).
			WithDetails(map[string]any{"execution_id": exec.ID})
	}
	exec.Status = to
	return nil
}

// TransitionStep validates and applies a step status change on the result.
func TransitionStep(result *StepResult, to schema.StepStatus) error {
	if !CanTransitionStep(result.Status, to) {
		return schema.NewErrorf(schema.ErrKindSystem,
			"invalid step transition: %s -> %s", result.Status, to).
			WithStep(result.StepID)
	}
	result.Status = to
	return nil
}
