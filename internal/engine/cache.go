package engine

import (
	"sort"
	"sync"
	"time"
)

// ExecutionCache holds snapshots of finished and in-flight execution records
// keyed by execution id, insulating readers from the coordinator's ongoing
// mutations. Entries expire ttl after their terminal timestamp; expiry is
// enforced lazily on read and by an optional janitor. A ttl of zero disables
// eviction entirely.
type ExecutionCache struct {
	mu      sync.RWMutex
	entries map[string]*Execution
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewExecutionCache creates a cache with the given ttl.
func NewExecutionCache(ttl time.Duration) *ExecutionCache {
	return &ExecutionCache{
		entries: make(map[string]*Execution),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
}

// Put publishes a point-in-time snapshot of the execution. The coordinator
// keeps mutating its live record; readers only ever see the copies stored
// here. Terminal records get their expiry clock started, preserved across
// re-publications of the same id.
func (c *ExecutionCache) Put(exec *Execution) {
	if exec == nil {
		return
	}
	snap := exec.clone()
	c.mu.Lock()
	defer c.mu.Unlock()

	if snap.Status.Terminal() && snap.CachedAt.IsZero() {
		if prev, ok := c.entries[snap.ID]; ok && !prev.CachedAt.IsZero() {
			snap.CachedAt = prev.CachedAt
		} else {
			snap.CachedAt = time.Now()
		}
	}
	c.entries[snap.ID] = snap
}

// Get returns a copy of the execution for id, or false when absent or
// expired. An expired entry is removed on the spot. Callers own the returned
// record.
func (c *ExecutionCache) Get(id string) (*Execution, bool) {
	c.mu.RLock()
	exec, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.expired(exec, time.Now()) {
		c.mu.Lock()
		// Re-check: a concurrent Put may have refreshed the entry.
		if cur, still := c.entries[id]; still && c.expired(cur, time.Now()) {
			delete(c.entries, id)
		}
		c.mu.Unlock()
		return nil, false
	}
	return exec.clone(), true
}

// List returns copies of all unexpired executions, most recently started
// first.
func (c *ExecutionCache) List() []*Execution {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Execution, 0, len(c.entries))
	for _, exec := range c.entries {
		if !c.expired(exec, now) {
			out = append(out, exec.clone())
		}
	}
	sortExecutionsByStart(out)
	return out
}

// Clear drops every entry.
func (c *ExecutionCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Execution)
	c.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (c *ExecutionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartJanitor launches a background sweep evicting expired entries every
// interval. No-op when the ttl is zero.
func (c *ExecutionCache) StartJanitor(interval time.Duration) {
	if c.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

// StopJanitor stops the background sweep.
func (c *ExecutionCache) StopJanitor() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *ExecutionCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, exec := range c.entries {
		if c.expired(exec, now) {
			delete(c.entries, id)
		}
	}
}

// expired reports whether a terminal entry has outlived the ttl. In-flight
// executions never expire.
func (c *ExecutionCache) expired(exec *Execution, now time.Time) bool {
	if c.ttl <= 0 || exec.CachedAt.IsZero() {
		return false
	}
	return now.Sub(exec.CachedAt) > c.ttl
}

func sortExecutionsByStart(execs []*Execution) {
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].StartTime.After(execs[j].StartTime)
	})
}
