package resources

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Usage is a point-in-time utilization snapshot, all values in percent.
type Usage struct {
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	Network   float64   `json:"network"`
	Disk      float64   `json:"disk"`
	SampledAt time.Time `json:"sampled_at"`
}

// UsageProvider samples current system utilization. Implementations must be
// safe for concurrent use; the engine samples once per execution admission.
type UsageProvider interface {
	Sample(ctx context.Context) (Usage, error)
}

// StaticProvider always returns the same snapshot. Used in tests and as a way
// to pin gate decisions.
type StaticProvider struct {
	usage Usage
}

// NewStaticProvider creates a provider that returns u on every sample.
func NewStaticProvider(u Usage) *StaticProvider {
	return &StaticProvider{usage: u}
}

func (p *StaticProvider) Sample(_ context.Context) (Usage, error) {
	u := p.usage
	u.SampledAt = time.Now().UTC()
	return u, nil
}

// SimulatedProvider returns randomized utilization within fixed bands. It is
// the default when no real provider is wired, mirroring environments where
// host metrics are unavailable.
type SimulatedProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedProvider creates a SimulatedProvider seeded from the clock.
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *SimulatedProvider) Sample(_ context.Context) (Usage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Usage{
		CPU:       10 + p.rng.Float64()*50,
		Memory:    20 + p.rng.Float64()*40,
		Network:   p.rng.Float64() * 30,
		Disk:      15 + p.rng.Float64()*35,
		SampledAt: time.Now().UTC(),
	}, nil
}
