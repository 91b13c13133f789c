package actions

import (
	"context"

	"github.com/helion-data/scanflow/pkg/schema"
)

// DefaultHandler implements the "default" action kind and serves as the
// fallback for unregistered kinds. It echoes its params into the step outputs
// so workflows can stage literal values for downstream steps.
type DefaultHandler struct{}

// NewDefaultHandler creates the passthrough handler.
func NewDefaultHandler() *DefaultHandler {
	return &DefaultHandler{}
}

func (h *DefaultHandler) Kind() string { return string(schema.ActionKindDefault) }

func (h *DefaultHandler) Schema() HandlerSchema {
	return HandlerSchema{
		Description: "Pass action params through as step outputs.",
	}
}

func (h *DefaultHandler) Validate(params map[string]any) error { return nil }

func (h *DefaultHandler) Execute(ctx context.Context, input Input) (*Output, error) {
	outputs := make(map[string]any, len(input.Params))
	for k, v := range input.Params {
		outputs[k] = v
	}
	return &Output{Outputs: outputs}, nil
}

var _ Handler = (*DefaultHandler)(nil)
