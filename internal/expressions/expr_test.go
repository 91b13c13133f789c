package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprEngine_Arithmetic(t *testing.T) {
	e := NewExprEngine()
	out, err := e.Evaluate(context.Background(), "count * 2", map[string]any{"count": 3})
	require.NoError(t, err)
	assert.EqualValues(t, 6, out)
}

func TestExprEngine_ArrayOperations(t *testing.T) {
	e := NewExprEngine()
	data := map[string]any{"nums": []any{1, 2, 3, 4}}

	out, err := e.Evaluate(context.Background(), "filter(nums, # > 2)", data)
	require.NoError(t, err)
	assert.Equal(t, []any{3, 4}, out)
}

func TestExprEngine_NilCoalescing(t *testing.T) {
	e := NewExprEngine()
	out, err := e.Evaluate(context.Background(), `missing ?? "fallback"`, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestExprEngine_CompileError(t *testing.T) {
	e := NewExprEngine()
	_, err := e.Evaluate(context.Background(), "1 +", map[string]any{})
	assert.Error(t, err)
}

func TestExprEngine_EmptyExpression(t *testing.T) {
	e := NewExprEngine()
	_, err := e.Evaluate(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestExprEngine_ProgramsAreCached(t *testing.T) {
	e := NewExprEngine()
	_, err := e.Evaluate(context.Background(), "1 + 1", nil)
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), "1 + 1", nil)
	require.NoError(t, err)

	e.mu.RLock()
	defer e.mu.RUnlock()
	assert.Len(t, e.cache, 1)
}
