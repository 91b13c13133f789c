package schema

import "encoding/json"

// Workflow is the caller-supplied definition of a scan/validation pipeline:
// a named DAG of steps. Authoring lives outside the engine; the engine only
// validates and executes it.
type Workflow struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Steps    []Step         `json:"steps"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Step is a unit of work: one or more typed actions plus the ids of steps it
// must wait on. The dependency relation across all steps must form a DAG.
type Step struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Actions   []Action `json:"actions"`
	DependsOn []string `json:"depends_on,omitempty"`
	Condition string   `json:"condition,omitempty"` // CEL guard, evaluated before dispatch
	Timeout   string   `json:"timeout,omitempty"`   // step-level timeout (e.g. "30s")
}

// Action is the smallest dispatchable unit inside a step, tagged by kind.
// The kind selects a registered handler; params are handler-specific.
type Action struct {
	Kind   ActionKind      `json:"kind"`
	Name   string          `json:"name,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ActionKind enumerates the built-in handler kinds. Custom kinds are added by
// registering a handler under a new kind, never by editing engine code.
type ActionKind string

const (
	ActionKindValidation     ActionKind = "validation"
	ActionKindTransformation ActionKind = "transformation"
	ActionKindNotification   ActionKind = "notification"
	ActionKindIntegration    ActionKind = "integration"
	ActionKindDefault        ActionKind = "default"
)

// ResourceLimits holds per-resource utilization ceilings, in percent, used by
// the pre-flight resource gate. A zero value for a resource disables its check.
type ResourceLimits struct {
	CPU     float64 `json:"cpu,omitempty"`
	Memory  float64 `json:"memory,omitempty"`
	Network float64 `json:"network,omitempty"`
	Disk    float64 `json:"disk,omitempty"`
}
