package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/helion-data/scanflow/internal/resources"
	"github.com/helion-data/scanflow/pkg/schema"
)

// Availability is the outcome of a pre-flight resource check.
type Availability struct {
	Available   bool            `json:"available"`
	Bottlenecks []string        `json:"bottlenecks,omitempty"`
	Usage       resources.Usage `json:"usage"`
	CheckedAt   time.Time       `json:"checked_at"`
}

// ResourceGate samples current utilization and admits a run only when every
// limited resource is below its ceiling. A zero limit disables the check for
// that resource.
type ResourceGate struct {
	provider resources.UsageProvider
	limits   schema.ResourceLimits
}

// NewResourceGate creates a gate over the given provider and default limits.
func NewResourceGate(provider resources.UsageProvider, limits schema.ResourceLimits) *ResourceGate {
	return &ResourceGate{provider: provider, limits: limits}
}

// Check samples utilization and compares it against the effective limits.
// Per-run limits override the defaults when non-nil. Sampling failures are
// reported as a resource error, never a panic.
func (g *ResourceGate) Check(ctx context.Context, override *schema.ResourceLimits) (*Availability, error) {
	usage, err := g.provider.Sample(ctx)
	if err != nil {
		return nil, schema.NewError(schema.ErrKindResource, "resource sampling failed").WithCause(err)
	}

	limits := g.limits
	if override != nil {
		limits = *override
	}

	avail := &Availability{
		Usage:     usage,
		CheckedAt: time.Now(),
	}

	type check struct {
		name  string
		used  float64
		limit float64
	}
	for _, c := range []check{
		{"cpu", usage.CPU, limits.CPU},
		{"memory", usage.Memory, limits.Memory},
		{"network", usage.Network, limits.Network},
		{"disk", usage.Disk, limits.Disk},
	} {
		if c.limit > 0 && c.used >= c.limit {
			avail.Bottlenecks = append(avail.Bottlenecks,
				fmt.Sprintf("%s at %.1f%% (limit %.1f%%)", c.name, c.used, c.limit))
		}
	}

	avail.Available = len(avail.Bottlenecks) == 0
	return avail, nil
}

// Admit returns a resource error naming the bottlenecks when the gate
// refuses the run.
func (g *ResourceGate) Admit(ctx context.Context, override *schema.ResourceLimits) (*Availability, error) {
	avail, err := g.Check(ctx, override)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		return avail, schema.NewErrorf(schema.ErrKindResource,
			"insufficient resources: %d bottleneck(s)", len(avail.Bottlenecks)).
			WithDetails(map[string]any{
				"bottlenecks": avail.Bottlenecks,
				"usage":       avail.Usage,
			})
	}
	return avail, nil
}
