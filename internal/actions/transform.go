package actions

import (
	"context"
	"encoding/json"

	"github.com/helion-data/scanflow/internal/expressions"
	"github.com/helion-data/scanflow/pkg/schema"
)

const transformationInputSchema = `{
  "type": "object",
  "properties": {
    "engine": {"type": "string", "enum": ["jq", "expr"], "default": "jq"},
    "program": {"type": "string"},
    "as": {"type": "string", "default": "result"}
  },
  "required": ["program"]
}`

// TransformationHandler implements the "transformation" action kind. It runs
// a jq or expr program against the execution context and stores the result
// under the "as" output key.
type TransformationHandler struct {
	engines map[string]expressions.Engine
}

// NewTransformationHandler creates a transformation handler with the given
// expression engines, keyed by engine name.
func NewTransformationHandler(engines ...expressions.Engine) *TransformationHandler {
	m := make(map[string]expressions.Engine, len(engines))
	for _, e := range engines {
		m[e.Name()] = e
	}
	return &TransformationHandler{engines: m}
}

func (h *TransformationHandler) Kind() string { return string(schema.ActionKindTransformation) }

func (h *TransformationHandler) Schema() HandlerSchema {
	return HandlerSchema{
		Description: "Transform execution context data with a jq or expr program.",
		InputSchema: json.RawMessage(transformationInputSchema),
	}
}

func (h *TransformationHandler) Validate(params map[string]any) error {
	if stringParam(params, "program", "") == "" {
		return schema.NewError(schema.ErrKindValidation, "transformation: missing required param 'program'")
	}
	name := stringParam(params, "engine", "jq")
	if _, ok := h.engines[name]; !ok {
		return schema.NewErrorf(schema.ErrKindValidation, "transformation: unknown engine %q", name)
	}
	return nil
}

func (h *TransformationHandler) Execute(ctx context.Context, input Input) (*Output, error) {
	params := input.Params
	if params == nil {
		params = map[string]any{}
	}

	if err := h.Validate(params); err != nil {
		return nil, err
	}

	engine := h.engines[stringParam(params, "engine", "jq")]
	program := stringParam(params, "program", "")
	as := stringParam(params, "as", "result")

	result, err := engine.Evaluate(ctx, program, input.Context)
	if err != nil {
		return nil, err
	}

	return &Output{Outputs: map[string]any{as: result}}, nil
}

var _ Handler = (*TransformationHandler)(nil)
