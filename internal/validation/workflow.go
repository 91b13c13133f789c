package validation

import (
	"fmt"

	"github.com/helion-data/scanflow/pkg/schema"
)

// Result is the outcome of workflow validation. Errors lists every violation
// found, not just the first, so callers can report all of them at once.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// CycleCheck reports whether the dependency relation over the given steps
// contains a cycle. Injected by the engine so the validator reuses the
// resolver's detection instead of duplicating it.
type CycleCheck func(steps []schema.Step) error

// WorkflowValidator performs structural validation of workflow definitions.
// It has no side effects and is safe for concurrent use.
type WorkflowValidator struct {
	schemaValidator *JSONSchemaValidator
	cycleCheck      CycleCheck
}

// NewWorkflowValidator creates a WorkflowValidator. The cycle check is
// required; the JSON Schema layer is built internally.
func NewWorkflowValidator(cycleCheck CycleCheck) (*WorkflowValidator, error) {
	sv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &WorkflowValidator{schemaValidator: sv, cycleCheck: cycleCheck}, nil
}

// Validate checks the workflow and returns all violations found. Checks, in
// order: workflow id present, at least one step, per-step structure (unique
// non-empty step ids, at least one action), schema conformance, and an
// acyclic dependency graph.
func (v *WorkflowValidator) Validate(wf *schema.Workflow) Result {
	if wf == nil {
		return Result{Valid: false, Errors: []string{"workflow is nil"}}
	}

	var errs []string

	if wf.ID == "" {
		errs = append(errs, "workflow has no id")
	}
	if len(wf.Steps) == 0 {
		errs = append(errs, "workflow has no steps")
	}

	seen := make(map[string]struct{}, len(wf.Steps))
	for i, step := range wf.Steps {
		if step.ID == "" {
			errs = append(errs, fmt.Sprintf("step at index %d has empty id", i))
			continue
		}
		if _, dup := seen[step.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = struct{}{}
		if len(step.Actions) == 0 {
			errs = append(errs, fmt.Sprintf("step %q has no actions", step.ID))
		}
	}

	if violations, err := v.schemaValidator.ValidateDefinition(wf); err == nil {
		for _, viol := range violations {
			if !containsString(errs, viol) {
				errs = append(errs, viol)
			}
		}
	}

	if v.cycleCheck != nil && len(wf.Steps) > 0 {
		if err := v.cycleCheck(wf.Steps); err != nil {
			errs = append(errs, err.Error())
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func containsString(s []string, want string) bool {
	for _, v := range s {
		if v == want {
			return true
		}
	}
	return false
}
