package actions

import (
	"context"
	"encoding/json"
)

// Handler is an executable unit of work within a workflow step, selected by
// the action's kind.
type Handler interface {
	Kind() string
	Schema() HandlerSchema
	Execute(ctx context.Context, input Input) (*Output, error)
	Validate(params map[string]any) error
}

// HandlerRegistry manages the lifecycle and lookup of available handlers.
type HandlerRegistry interface {
	Register(h Handler) error
	Resolve(kind string) (Handler, error)
	List() []HandlerInfo
}

// HandlerSchema describes the input/output contract of a handler.
type HandlerSchema struct {
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// Input is the data provided to a handler at execution time. Params come from
// the action definition; Context is the shared execution context (completed
// step outputs under "steps", workflow inputs under "inputs", run metadata
// under "workflow").
type Input struct {
	Params  map[string]any `json:"params"`
	Context map[string]any `json:"context,omitempty"`
}

// Output is the result of a handler execution. Outputs are merged into the
// step result; Warnings are collected without failing the step.
type Output struct {
	Outputs  map[string]any `json:"outputs,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// HandlerInfo is a summary of a registered handler for listing.
type HandlerInfo struct {
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}
