package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helion-data/scanflow/pkg/schema"
)

func terminalExec(id string) *Execution {
	return &Execution{
		ID:        id,
		Status:    schema.ExecutionStatusCompleted,
		StartTime: time.Now(),
	}
}

func TestExecutionCache_PutGet(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	c.Put(terminalExec("e1"))

	got, ok := c.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "e1", got.ID)
}

func TestExecutionCache_GetMissing(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestExecutionCache_ExpiredEntryNotFound(t *testing.T) {
	c := NewExecutionCache(10 * time.Millisecond)
	c.Put(terminalExec("e1"))

	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("e1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestExecutionCache_InFlightNeverExpires(t *testing.T) {
	c := NewExecutionCache(10 * time.Millisecond)
	c.Put(&Execution{ID: "running", Status: schema.ExecutionStatusRunning, StartTime: time.Now()})

	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("running")
	assert.True(t, ok)
}

func TestExecutionCache_ZeroTTLDisablesEviction(t *testing.T) {
	c := NewExecutionCache(0)
	c.Put(terminalExec("e1"))

	time.Sleep(15 * time.Millisecond)

	_, ok := c.Get("e1")
	assert.True(t, ok)
}

func TestExecutionCache_Clear(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	c.Put(terminalExec("e1"))
	c.Put(terminalExec("e2"))

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestExecutionCache_ListNewestFirst(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	old := terminalExec("old")
	old.StartTime = time.Now().Add(-time.Hour)
	c.Put(old)
	c.Put(terminalExec("new"))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
}

func TestExecutionCache_PutStoresSnapshot(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	live := &Execution{ID: "e1", Status: schema.ExecutionStatusRunning, StartTime: time.Now()}
	c.Put(live)

	// Later mutations of the live record must not leak into the cache.
	live.Steps = append(live.Steps, &StepResult{StepID: "s1"})
	live.Logs = append(live.Logs, LogEntry{Message: "later"})

	got, ok := c.Get("e1")
	require.True(t, ok)
	assert.Empty(t, got.Steps)
	assert.Empty(t, got.Logs)
}

func TestExecutionCache_GetReturnsIndependentCopies(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	exec := terminalExec("e1")
	exec.Steps = []*StepResult{{StepID: "s1", Status: schema.StepStatusCompleted}}
	c.Put(exec)

	first, ok := c.Get("e1")
	require.True(t, ok)
	first.Steps[0].Status = schema.StepStatusFailed

	second, ok := c.Get("e1")
	require.True(t, ok)
	assert.Equal(t, schema.StepStatusCompleted, second.Steps[0].Status)
}

func TestExecutionCache_RePutKeepsExpiryClock(t *testing.T) {
	c := NewExecutionCache(time.Hour)
	c.Put(terminalExec("e1"))

	before, ok := c.Get("e1")
	require.True(t, ok)

	c.Put(terminalExec("e1"))
	after, ok := c.Get("e1")
	require.True(t, ok)
	assert.Equal(t, before.CachedAt, after.CachedAt)
}

func TestExecutionCache_JanitorSweeps(t *testing.T) {
	c := NewExecutionCache(10 * time.Millisecond)
	c.StartJanitor(5 * time.Millisecond)
	defer c.StopJanitor()

	c.Put(terminalExec("e1"))

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 5*time.Millisecond)
}
