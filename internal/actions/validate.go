package actions

import (
	"context"
	"encoding/json"

	"github.com/helion-data/scanflow/internal/validation"
	"github.com/helion-data/scanflow/pkg/schema"
)

const validationInputSchema = `{
  "type": "object",
  "properties": {
    "schema": {"type": "object"},
    "data": {},
    "data_key": {"type": "string"},
    "warn_only": {"type": "boolean", "default": false}
  },
  "required": ["schema"]
}`

// ValidationHandler implements the "validation" action kind. It checks data
// against a JSON Schema supplied in params. The data comes from the "data"
// param, or from the execution context at "data_key" when set.
type ValidationHandler struct {
	validator *validation.JSONSchemaValidator
}

// NewValidationHandler creates a validation handler backed by the given
// schema validator.
func NewValidationHandler(v *validation.JSONSchemaValidator) *ValidationHandler {
	return &ValidationHandler{validator: v}
}

func (h *ValidationHandler) Kind() string { return string(schema.ActionKindValidation) }

func (h *ValidationHandler) Schema() HandlerSchema {
	return HandlerSchema{
		Description: "Validate data against a JSON Schema.",
		InputSchema: json.RawMessage(validationInputSchema),
	}
}

func (h *ValidationHandler) Validate(params map[string]any) error {
	if _, ok := params["schema"]; !ok {
		return schema.NewError(schema.ErrKindValidation, "validation: missing required param 'schema'")
	}
	return nil
}

func (h *ValidationHandler) Execute(ctx context.Context, input Input) (*Output, error) {
	params := input.Params
	if params == nil {
		params = map[string]any{}
	}

	if err := h.Validate(params); err != nil {
		return nil, err
	}

	schemaBytes, err := json.Marshal(params["schema"])
	if err != nil {
		return nil, schema.NewError(schema.ErrKindValidation, "validation: schema is not serializable").WithCause(err)
	}

	data := params["data"]
	if key := stringParam(params, "data_key", ""); key != "" && input.Context != nil {
		data = lookupPath(input.Context, key)
	}

	warnOnly := boolParam(params, "warn_only", false)

	if err := h.validator.ValidateData(data, schemaBytes); err != nil {
		if warnOnly {
			return &Output{
				Outputs:  map[string]any{"valid": false},
				Warnings: []string{err.Error()},
			}, nil
		}
		return nil, err
	}

	return &Output{Outputs: map[string]any{"valid": true}}, nil
}

var _ Handler = (*ValidationHandler)(nil)
