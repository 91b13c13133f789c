package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helion-data/scanflow/pkg/schema"
)

func newJSONSchemaValidator(t *testing.T) *JSONSchemaValidator {
	t.Helper()
	v, err := NewJSONSchemaValidator()
	require.NoError(t, err)
	return v
}

func TestValidateDefinition_Valid(t *testing.T) {
	v := newJSONSchemaValidator(t)
	wf := &schema.Workflow{
		ID: "wf-1",
		Steps: []schema.Step{{
			ID:      "a",
			Actions: []schema.Action{{Kind: schema.ActionKindDefault}},
			Timeout: "30s",
		}},
	}

	violations, err := v.ValidateDefinition(wf)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidateDefinition_BadTimeoutPattern(t *testing.T) {
	v := newJSONSchemaValidator(t)
	wf := &schema.Workflow{
		ID: "wf-1",
		Steps: []schema.Step{{
			ID:      "a",
			Actions: []schema.Action{{Kind: schema.ActionKindDefault}},
			Timeout: "soon",
		}},
	}

	violations, err := v.ValidateDefinition(wf)
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestValidateDefinition_NilWorkflow(t *testing.T) {
	v := newJSONSchemaValidator(t)
	_, err := v.ValidateDefinition(nil)
	assert.Error(t, err)
}

func TestValidateData_Valid(t *testing.T) {
	v := newJSONSchemaValidator(t)
	err := v.ValidateData(
		map[string]any{"name": "x", "count": 3},
		[]byte(`{"type":"object","required":["name"],"properties":{"count":{"type":"integer"}}}`),
	)
	assert.NoError(t, err)
}

func TestValidateData_Violations(t *testing.T) {
	v := newJSONSchemaValidator(t)
	err := v.ValidateData(
		map[string]any{"count": "three"},
		[]byte(`{"type":"object","required":["name"],"properties":{"count":{"type":"integer"}}}`),
	)
	require.Error(t, err)

	var ferr *schema.FlowError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, schema.ErrKindValidation, ferr.Kind)
	assert.Contains(t, ferr.Details, "violations")
}

func TestValidateData_EmptySchemaValidatesEverything(t *testing.T) {
	v := newJSONSchemaValidator(t)
	assert.NoError(t, v.ValidateData(map[string]any{"anything": true}, nil))
}

func TestValidateData_InvalidSchema(t *testing.T) {
	v := newJSONSchemaValidator(t)
	err := v.ValidateData(map[string]any{}, []byte(`{"type": 42}`))
	assert.Error(t, err)
}

func TestValidateData_CompiledSchemaIsCached(t *testing.T) {
	v := newJSONSchemaValidator(t)
	sch := []byte(`{"type":"object"}`)

	require.NoError(t, v.ValidateData(map[string]any{}, sch))
	require.NoError(t, v.ValidateData(map[string]any{}, sch))

	v.mu.RLock()
	defer v.mu.RUnlock()
	assert.Len(t, v.cache, 1)
}
