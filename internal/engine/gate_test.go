package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helion-data/scanflow/internal/resources"
	"github.com/helion-data/scanflow/pkg/schema"
)

func TestResourceGate_Admits(t *testing.T) {
	provider := resources.NewStaticProvider(resources.Usage{CPU: 20, Memory: 30, Network: 10, Disk: 40})
	gate := NewResourceGate(provider, schema.ResourceLimits{CPU: 80, Memory: 85, Network: 90, Disk: 90})

	avail, err := gate.Admit(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Empty(t, avail.Bottlenecks)
}

func TestResourceGate_RefusesOnBottleneck(t *testing.T) {
	provider := resources.NewStaticProvider(resources.Usage{CPU: 95, Memory: 30})
	gate := NewResourceGate(provider, schema.ResourceLimits{CPU: 80, Memory: 85})

	avail, err := gate.Admit(context.Background(), nil)
	require.Error(t, err)
	require.NotNil(t, avail)
	assert.False(t, avail.Available)
	assert.Len(t, avail.Bottlenecks, 1)
	assert.Contains(t, avail.Bottlenecks[0], "cpu")

	var ferr *schema.FlowError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, schema.ErrKindResource, ferr.Kind)
}

func TestResourceGate_ZeroLimitDisablesCheck(t *testing.T) {
	provider := resources.NewStaticProvider(resources.Usage{CPU: 99, Memory: 99, Network: 99, Disk: 99})
	gate := NewResourceGate(provider, schema.ResourceLimits{})

	avail, err := gate.Admit(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, avail.Available)
}

func TestResourceGate_OverrideLimits(t *testing.T) {
	provider := resources.NewStaticProvider(resources.Usage{CPU: 50})
	gate := NewResourceGate(provider, schema.ResourceLimits{CPU: 80})

	// Default limits admit.
	_, err := gate.Admit(context.Background(), nil)
	require.NoError(t, err)

	// Per-run override refuses.
	_, err = gate.Admit(context.Background(), &schema.ResourceLimits{CPU: 40})
	assert.Error(t, err)
}

func TestResourceGate_MultipleBottlenecks(t *testing.T) {
	provider := resources.NewStaticProvider(resources.Usage{CPU: 95, Memory: 95, Network: 95, Disk: 95})
	gate := NewResourceGate(provider, schema.ResourceLimits{CPU: 80, Memory: 85, Network: 90, Disk: 90})

	avail, err := gate.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, avail.Bottlenecks, 4)
}
