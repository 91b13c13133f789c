package resources

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	"github.com/helion-data/scanflow/pkg/schema"
)

// DefaultLinkMbps is the assumed link capacity when none is configured,
// used to turn byte counters into a utilization percentage.
const DefaultLinkMbps = 1000.0

// SystemProvider samples real host utilization via gopsutil.
// Network utilization is estimated from the byte-counter delta between
// consecutive samples against the configured link capacity.
type SystemProvider struct {
	// DiskPath is the mount point measured for disk usage. Defaults to "/".
	DiskPath string
	// LinkMbps is the network link capacity used for the utilization estimate.
	LinkMbps float64

	mu        sync.Mutex
	lastBytes uint64
	lastAt    time.Time
}

// NewSystemProvider creates a SystemProvider with default settings.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{DiskPath: "/", LinkMbps: DefaultLinkMbps}
}

func (p *SystemProvider) Sample(ctx context.Context) (Usage, error) {
	u := Usage{SampledAt: time.Now().UTC()}

	cpuPct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Usage{}, schema.NewErrorf(schema.ErrKindSystem, "sample cpu: %s", err.Error()).WithCause(err)
	}
	if len(cpuPct) > 0 {
		u.CPU = cpuPct[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, schema.NewErrorf(schema.ErrKindSystem, "sample memory: %s", err.Error()).WithCause(err)
	}
	u.Memory = vm.UsedPercent

	path := p.DiskPath
	if path == "" {
		path = "/"
	}
	du, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Usage{}, schema.NewErrorf(schema.ErrKindSystem, "sample disk: %s", err.Error()).WithCause(err)
	}
	u.Disk = du.UsedPercent

	u.Network = p.networkPercent(ctx)

	return u, nil
}

// networkPercent estimates link utilization from the delta of total sent and
// received bytes since the previous sample. The first sample reports 0.
func (p *SystemProvider) networkPercent(ctx context.Context) float64 {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		return 0
	}
	total := counters[0].BytesSent + counters[0].BytesRecv
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	defer func() {
		p.lastBytes = total
		p.lastAt = now
	}()

	if p.lastAt.IsZero() || total < p.lastBytes {
		return 0
	}
	elapsed := now.Sub(p.lastAt).Seconds()
	if elapsed <= 0 {
		return 0
	}

	capMbps := p.LinkMbps
	if capMbps <= 0 {
		capMbps = DefaultLinkMbps
	}
	mbps := float64(total-p.lastBytes) * 8 / 1e6 / elapsed
	pct := mbps / capMbps * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
