package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoJQEngine_SingleOutput(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), ".count + 1", map[string]any{"count": 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, out)
}

func TestGoJQEngine_NestedAccess(t *testing.T) {
	e := NewGoJQEngine()
	data := map[string]any{
		"steps": map[string]any{
			"scan": map[string]any{"assets": []any{"a", "b"}},
		},
	}

	out, err := e.Evaluate(context.Background(), ".steps.scan.assets | length", data)
	require.NoError(t, err)
	assert.EqualValues(t, 2, out)
}

func TestGoJQEngine_MultipleOutputsCollected(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), ".items[]", map[string]any{
		"items": []any{"x", "y"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, out)
}

func TestGoJQEngine_NoOutputIsNil(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), "empty", map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGoJQEngine_ParseError(t *testing.T) {
	e := NewGoJQEngine()
	_, err := e.Evaluate(context.Background(), ".[", map[string]any{})
	assert.Error(t, err)
}

func TestGoJQEngine_RuntimeError(t *testing.T) {
	e := NewGoJQEngine()
	_, err := e.Evaluate(context.Background(), `.count + "x"`, map[string]any{"count": 1})
	assert.Error(t, err)
}

func TestGoJQEngine_EnvIsSandboxed(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), "env | length", map[string]any{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, out)
}

func TestGoJQEngine_IntInputsNormalized(t *testing.T) {
	e := NewGoJQEngine()
	out, err := e.Evaluate(context.Background(), ".a + .b", map[string]any{
		"a": int64(1),
		"b": int32(2),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, out)
}
