package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helion-data/scanflow/internal/actions"
	"github.com/helion-data/scanflow/internal/expressions"
	"github.com/helion-data/scanflow/internal/logging"
	"github.com/helion-data/scanflow/internal/resources"
	"github.com/helion-data/scanflow/internal/store"
	"github.com/helion-data/scanflow/internal/validation"
	"github.com/helion-data/scanflow/pkg/schema"
)

// Engine validates and executes workflows. All state lives on the instance;
// construct as many engines as needed, each isolated from the others.
type Engine struct {
	config Config
	logger *slog.Logger

	registry  *actions.Registry
	validator *validation.WorkflowValidator
	cel       *expressions.CELEngine
	gate      *ResourceGate
	admission *Admission
	cache     *ExecutionCache
	metrics   *Metrics
	breakers  *CircuitBreakerRegistry
	runner    *StepRunner
	provider  resources.UsageProvider
	history   store.Store

	mu       sync.Mutex
	controls map[string]*runControl
	closed   bool
}

// Option customizes engine construction.
type Option func(*engineOptions)

type engineOptions struct {
	logger   *slog.Logger
	registry *actions.Registry
	provider resources.UsageProvider
	history  store.Store
	httpCfg  actions.HTTPConfig
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = logger }
}

// WithRegistry supplies a pre-populated handler registry. Builtins are not
// registered on top of it.
func WithRegistry(reg *actions.Registry) Option {
	return func(o *engineOptions) { o.registry = reg }
}

// WithUsageProvider sets the resource utilization source for the gate.
func WithUsageProvider(p resources.UsageProvider) Option {
	return func(o *engineOptions) { o.provider = p }
}

// WithHistoryStore sets the persistent execution history store, used when
// analytics is enabled.
func WithHistoryStore(s store.Store) Option {
	return func(o *engineOptions) { o.history = s }
}

// WithHTTPConfig configures the integration handler.
func WithHTTPConfig(cfg actions.HTTPConfig) Option {
	return func(o *engineOptions) { o.httpCfg = cfg }
}

// New constructs an Engine with the given config.
func New(cfg Config, opts ...Option) (*Engine, error) {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}

	validator, err := validation.NewWorkflowValidator(CheckCycles)
	if err != nil {
		return nil, err
	}

	registry := o.registry
	if registry == nil {
		registry = actions.NewRegistry()
		schemaValidator, err := validation.NewJSONSchemaValidator()
		if err != nil {
			return nil, err
		}
		if err := actions.RegisterBuiltins(registry, schemaValidator, logger, o.httpCfg); err != nil {
			return nil, err
		}
	}

	provider := o.provider
	if provider == nil {
		if cfg.EnableMonitoring {
			provider = resources.NewSystemProvider()
		} else {
			provider = resources.NewSimulatedProvider()
		}
	}

	var breakers *CircuitBreakerRegistry
	if cfg.EnableOptimization {
		breakers = NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig())
	}

	var stepProvider resources.UsageProvider
	if cfg.EnableMonitoring {
		stepProvider = provider
	}

	cacheTTL := cfg.CacheTimeout
	if !cfg.EnableCaching {
		// Records still live in the map so GetExecution keeps working;
		// disabling caching only turns off eviction.
		cacheTTL = 0
	}
	cache := NewExecutionCache(cacheTTL)
	if cfg.EnableCaching && cfg.CacheTimeout > 0 {
		cache.StartJanitor(cfg.CacheTimeout / 4)
	}

	e := &Engine{
		config:    cfg,
		logger:    logger,
		registry:  registry,
		validator: validator,
		cel:       cel,
		gate:      NewResourceGate(provider, cfg.Limits),
		admission: NewAdmission(cfg.MaxConcurrentExecutions),
		cache:     cache,
		metrics:   NewMetrics(),
		breakers:  breakers,
		provider:  provider,
		history:   o.history,
		controls:  make(map[string]*runControl),
	}
	e.runner = NewStepRunner(registry, cel, breakers, stepProvider, logger, cfg.MaxRetries, cfg.RetryDelay)
	return e, nil
}

// Registry exposes the handler registry for custom kind registration.
func (e *Engine) Registry() *actions.Registry {
	return e.registry
}

// ExecuteWorkflow runs the workflow to completion and returns its structured
// record. The record is always non-nil: validation failures, admission
// refusals and step errors all land in its Status and Errors rather than in
// the returned error, which is reserved for an unusable engine (shut down) or
// a caller context cancelled before admission.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wf *schema.Workflow, opts Options) (*Execution, error) {
	exec := &Execution{
		ID:        uuid.NewString(),
		Status:    schema.ExecutionStatusPending,
		Outputs:   make(map[string]any),
		StartTime: time.Now(),
	}
	if wf != nil {
		exec.WorkflowID = wf.ID
		exec.WorkflowName = wf.Name
	}
	ctx = logging.WithExecutionID(ctx, exec.ID)
	ctx = logging.WithWorkflowID(ctx, exec.WorkflowID)

	if wf == nil {
		exec.Errors = append(exec.Errors, schema.NewError(schema.ErrKindValidation, "workflow is nil"))
		e.finalize(ctx, exec, schema.ExecutionStatusFailed)
		return exec, nil
	}

	// Validation and ordering happen before a slot is taken so a malformed
	// workflow never occupies capacity.
	if res := e.validator.Validate(wf); !res.Valid {
		for _, msg := range res.Errors {
			exec.Errors = append(exec.Errors, schema.NewError(schema.ErrKindValidation, msg))
		}
		e.logger.WarnContext(ctx, "workflow validation failed", slog.Int("violations", len(res.Errors)))
		e.finalize(ctx, exec, schema.ExecutionStatusFailed)
		return exec, nil
	}

	order, err := ResolveOrder(wf.Steps)
	if err != nil {
		exec.Errors = append(exec.Errors, asFlowError(err))
		e.finalize(ctx, exec, schema.ExecutionStatusFailed)
		return exec, nil
	}

	if _, err := e.gate.Admit(ctx, opts.Limits); err != nil {
		exec.Errors = append(exec.Errors, asFlowError(err))
		e.logger.WarnContext(ctx, "resource gate refused execution", slog.String("error", err.Error()))
		e.finalize(ctx, exec, schema.ExecutionStatusFailed)
		return exec, nil
	}

	control := newRunControl()
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		exec.Errors = append(exec.Errors, schema.NewError(schema.ErrKindSystem, "engine is shut down"))
		e.finalize(ctx, exec, schema.ExecutionStatusFailed)
		return exec, ErrAdmissionClosed
	}
	e.controls[exec.ID] = control
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.controls, exec.ID)
		e.mu.Unlock()
	}()

	e.cache.Put(exec)
	e.metrics.RecordQueued()

	runErr := e.admission.Run(ctx, func() {
		e.metrics.RecordStart()
	}, func(ctx context.Context) error {
		e.runSteps(ctx, wf, order, opts, exec, control)
		return nil
	})

	if runErr != nil {
		// Never admitted: the queue slot is released without a start.
		exec.Errors = append(exec.Errors, asFlowError(runErr))
		status := schema.ExecutionStatusFailed
		if control.isCancelled() || ctx.Err() == context.Canceled {
			status = schema.ExecutionStatusCancelled
		}
		e.finalizeUnadmitted(ctx, exec, status)
		return exec, runErr
	}

	return exec, nil
}

// runSteps drives the ordered step loop under the admission slot. It owns
// the running -> terminal transition and all between-step policy checks.
func (e *Engine) runSteps(ctx context.Context, wf *schema.Workflow, order []string, opts Options, exec *Execution, control *runControl) {
	defer func() {
		if r := recover(); r != nil {
			exec.Errors = append(exec.Errors, schema.NewErrorf(schema.ErrKindSystem,
				"execution panicked: %v", r).WithSeverity(schema.SeverityCritical))
			e.finish(ctx, exec, schema.ExecutionStatusFailed)
		}
	}()

	_ = TransitionExecution(exec, schema.ExecutionStatusRunning)
	e.cache.Put(exec)
	e.logf(exec, "info", "", "execution started")
	e.logger.InfoContext(ctx, "execution started",
		slog.String("workflow", wf.ID), slog.Int("steps", len(order)))

	maxRetries := e.config.MaxRetries
	if opts.MaxRetries != nil && *opts.MaxRetries >= 0 {
		maxRetries = *opts.MaxRetries
	}
	runner := e.runner
	if maxRetries != e.config.MaxRetries {
		runner = NewStepRunner(e.registry, e.cel, e.breakers, e.stepProvider(), e.logger, maxRetries, e.config.RetryDelay)
	}

	maxDuration := opts.MaxDuration
	if maxDuration <= 0 {
		maxDuration = e.config.Timeout
	}
	deadline := exec.StartTime.Add(maxDuration)

	steps := make(map[string]*schema.Step, len(wf.Steps))
	for i := range wf.Steps {
		steps[wf.Steps[i].ID] = &wf.Steps[i]
	}

	stepOutputs := make(map[string]any, len(order))
	execCtx := map[string]any{
		"steps":  stepOutputs,
		"inputs": orEmpty(opts.Inputs),
		"workflow": map[string]any{
			"id":           wf.ID,
			"name":         wf.Name,
			"execution_id": exec.ID,
			"metadata":     orEmpty(wf.Metadata),
		},
		"context": map[string]any{},
	}

	results := make(map[string]*StepResult, len(order))

	// Dependency tracking is seeded up front so a truncated run still reports
	// every declared reference. Entries stay unsatisfied with a zero
	// LastChecked until their step is reached.
	depIndex := make(map[string]*DependencyStatus, len(order))
	for _, id := range order {
		ds := &DependencyStatus{StepID: id, DependsOn: steps[id].DependsOn}
		depIndex[id] = ds
		exec.Dependencies = append(exec.Dependencies, ds)
	}

	failed := 0
	status := schema.ExecutionStatusRunning

	for _, id := range order {
		step := steps[id]

		if maxDuration > 0 && time.Now().After(deadline) {
			exec.Errors = append(exec.Errors, schema.NewErrorf(schema.ErrKindTimeout,
				"execution exceeded max duration %s", maxDuration))
			e.logf(exec, "error", "", "execution exceeded max duration")
			status = schema.ExecutionStatusFailed
			break
		}

		if stop, st := e.checkpoint(ctx, exec, control); stop {
			status = st
			break
		}

		depStatus := depIndex[id]
		e.checkDependencies(depStatus, results)
		if !depStatus.Satisfied {
			unmet := unmetOf(step, results)
			result := &StepResult{
				StepID:    step.ID,
				Name:      step.Name,
				Status:    schema.StepStatusSkipped,
				StartTime: time.Now(),
				EndTime:   time.Now(),
			}
			result.Errors = append(result.Errors, schema.NewErrorf(schema.ErrKindDependency,
				"unmet dependencies: %v", unmet).WithStep(step.ID))
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("step skipped: unmet dependencies %v", unmet))
			exec.Steps = append(exec.Steps, result)
			results[id] = result
			e.logf(exec, "warn", step.ID, "step skipped: unmet dependencies")
			continue
		}

		result := runner.Run(ctx, step, execCtx)
		exec.Steps = append(exec.Steps, result)
		results[id] = result
		exec.Errors = append(exec.Errors, result.Errors...)
		e.cache.Put(exec)

		switch result.Status {
		case schema.StepStatusCompleted:
			stepOutputs[id] = result.Outputs
			e.logf(exec, "info", step.ID, "step completed")
		case schema.StepStatusSkipped:
			e.logf(exec, "info", step.ID, "step skipped by condition")
		case schema.StepStatusCancelled:
			e.logf(exec, "warn", step.ID, "step cancelled")
			status = schema.ExecutionStatusCancelled
		default:
			failed++
			e.logf(exec, "error", step.ID, "step failed")
		}
		if status == schema.ExecutionStatusCancelled {
			break
		}

		if opts.FailFast && result.Status == schema.StepStatusFailed {
			e.logf(exec, "warn", "", "fail-fast triggered")
			status = schema.ExecutionStatusFailed
			break
		}
		if opts.MaxErrors > 0 && failed >= opts.MaxErrors {
			exec.Errors = append(exec.Errors, schema.NewErrorf(schema.ErrKindExecution,
				"max errors reached: %d", opts.MaxErrors))
			e.logf(exec, "warn", "", "max errors reached")
			status = schema.ExecutionStatusFailed
			break
		}
	}

	if status == schema.ExecutionStatusRunning {
		// Step failures alone do not fail the run; policy triggers do.
		status = schema.ExecutionStatusCompleted
	}

	exec.Outputs = stepOutputs
	e.finish(ctx, exec, status)
}

// checkpoint honors cancel and pause requests between steps. It returns the
// terminal status to adopt when the run must stop.
func (e *Engine) checkpoint(ctx context.Context, exec *Execution, control *runControl) (bool, schema.ExecutionStatus) {
	if ctx.Err() != nil || control.isCancelled() {
		exec.Errors = append(exec.Errors, schema.NewError(schema.ErrKindExecution, "execution cancelled"))
		e.logf(exec, "warn", "", "execution cancelled")
		return true, schema.ExecutionStatusCancelled
	}

	if control.isPaused() {
		_ = TransitionExecution(exec, schema.ExecutionStatusPaused)
		e.cache.Put(exec)
		e.logf(exec, "info", "", "execution paused")

		if err := control.awaitResume(ctx); err != nil {
			exec.Errors = append(exec.Errors, schema.NewError(schema.ErrKindExecution, "execution cancelled while paused"))
			return true, schema.ExecutionStatusCancelled
		}

		_ = TransitionExecution(exec, schema.ExecutionStatusRunning)
		e.cache.Put(exec)
		e.logf(exec, "info", "", "execution resumed")

		// A cancel may have arrived with the resume.
		if control.isCancelled() {
			exec.Errors = append(exec.Errors, schema.NewError(schema.ErrKindExecution, "execution cancelled"))
			return true, schema.ExecutionStatusCancelled
		}
	}

	return false, schema.ExecutionStatusRunning
}

// checkDependencies evaluates the readiness of a step's dependencies against
// the results so far, updating its seeded ledger entry. Unknown dependency
// ids count as satisfied.
func (e *Engine) checkDependencies(ds *DependencyStatus, results map[string]*StepResult) {
	ds.Satisfied = true
	ds.LastChecked = time.Now()
	ds.WaitCount = 0
	for _, dep := range ds.DependsOn {
		res, known := results[dep]
		if !known {
			continue
		}
		ds.WaitCount++
		if res.Status != schema.StepStatusCompleted {
			ds.Satisfied = false
		}
	}
}

func unmetOf(step *schema.Step, results map[string]*StepResult) []string {
	var unmet []string
	for _, dep := range step.DependsOn {
		if res, known := results[dep]; known && res.Status != schema.StepStatusCompleted {
			unmet = append(unmet, dep)
		}
	}
	return unmet
}

// finish seals a run that made it past admission: transition, stats, engine
// metrics, cache and history.
func (e *Engine) finish(ctx context.Context, exec *Execution, status schema.ExecutionStatus) {
	if !exec.Status.Terminal() {
		_ = TransitionExecution(exec, status)
	}
	e.seal(exec)
	e.metrics.RecordFinish(exec.Duration, exec.Success, exec.Status == schema.ExecutionStatusCancelled)
	e.cache.Put(exec)
	e.persist(ctx, exec)

	e.logger.InfoContext(ctx, "execution finished",
		slog.String("status", string(exec.Status)),
		slog.Bool("success", exec.Success),
		slog.Duration("duration", exec.Duration),
		slog.Int("steps_failed", exec.Stats.StepsFailed))
}

// finalize seals a run rejected before it was queued (validation, resources,
// nil workflow). These count into the engine totals like any other run.
func (e *Engine) finalize(ctx context.Context, exec *Execution, status schema.ExecutionStatus) {
	_ = TransitionExecution(exec, status)
	e.seal(exec)
	e.metrics.RecordQueued()
	e.metrics.RecordStart()
	e.metrics.RecordFinish(exec.Duration, exec.Success, exec.Status == schema.ExecutionStatusCancelled)
	e.cache.Put(exec)
	e.persist(ctx, exec)
}

// finalizeUnadmitted seals a run that was queued but never got a slot.
func (e *Engine) finalizeUnadmitted(ctx context.Context, exec *Execution, status schema.ExecutionStatus) {
	if !exec.Status.Terminal() {
		_ = TransitionExecution(exec, status)
	}
	e.seal(exec)
	e.metrics.RecordStart()
	e.metrics.RecordFinish(exec.Duration, exec.Success, exec.Status == schema.ExecutionStatusCancelled)
	e.cache.Put(exec)
	e.persist(ctx, exec)
}

// seal computes the derived fields of a terminal execution record.
func (e *Engine) seal(exec *Execution) {
	exec.EndTime = time.Now()
	exec.Duration = exec.EndTime.Sub(exec.StartTime)
	exec.Success = exec.Status == schema.ExecutionStatusCompleted

	exec.Stats = ExecutionStats{StepsTotal: len(exec.Steps)}
	var total, min, max time.Duration
	timed := 0
	for _, s := range exec.Steps {
		switch s.Status {
		case schema.StepStatusCompleted:
			exec.Stats.StepsSucceeded++
		case schema.StepStatusSkipped:
			exec.Stats.StepsSkipped++
		default:
			exec.Stats.StepsFailed++
		}
		if s.Duration > 0 {
			if timed == 0 || s.Duration < min {
				min = s.Duration
			}
			if s.Duration > max {
				max = s.Duration
			}
			total += s.Duration
			timed++
		}
	}
	if timed > 0 {
		exec.Performance = PerformanceMetrics{
			AvgStepDuration: total / time.Duration(timed),
			MinStepDuration: min,
			MaxStepDuration: max,
		}
	}

	if e.config.EnableMonitoring && e.provider != nil {
		if usage, err := e.provider.Sample(context.Background()); err == nil {
			exec.Resources = &usage
		}
	}
}

// persist writes the terminal record to the history store when analytics is
// on. Storage trouble is logged, never surfaced to the caller.
func (e *Engine) persist(ctx context.Context, exec *Execution) {
	if !e.config.EnableAnalytics || e.history == nil {
		return
	}

	payload, err := json.Marshal(exec)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to serialize execution for history", slog.String("error", err.Error()))
		return
	}
	rec := &store.ExecutionRecord{
		ID:         exec.ID,
		WorkflowID: exec.WorkflowID,
		Status:     string(exec.Status),
		Success:    exec.Success,
		StartTime:  exec.StartTime,
		EndTime:    exec.EndTime,
		DurationMs: exec.Duration.Milliseconds(),
		Payload:    payload,
	}
	if err := e.history.SaveExecution(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist execution history", slog.String("error", err.Error()))
	}
}

// RunScheduled executes a workflow on behalf of the scheduler with default
// options. The error reflects the execution outcome so job status tracking
// has something to record.
func (e *Engine) RunScheduled(ctx context.Context, wf *schema.Workflow, inputs map[string]any) error {
	exec, err := e.ExecuteWorkflow(ctx, wf, Options{Inputs: inputs})
	if err != nil {
		return err
	}
	if !exec.Success {
		return schema.NewErrorf(schema.ErrKindExecution,
			"scheduled run %s finished %s", exec.ID, exec.Status)
	}
	return nil
}

// GetExecution returns a point-in-time snapshot of the execution by id,
// falling back to the history store for records already evicted from the
// cache. Safe to call while the execution is still running.
func (e *Engine) GetExecution(ctx context.Context, id string) (*Execution, error) {
	if exec, ok := e.cache.Get(id); ok {
		return exec, nil
	}

	if e.config.EnableAnalytics && e.history != nil {
		rec, err := e.history.GetExecution(ctx, id)
		if err != nil {
			return nil, err
		}
		var exec Execution
		if err := json.Unmarshal(rec.Payload, &exec); err != nil {
			return nil, schema.NewError(schema.ErrKindSystem, "corrupt execution record").WithCause(err)
		}
		return &exec, nil
	}

	return nil, schema.NewErrorf(schema.ErrKindExecution, "execution %q not found", id)
}

// ListExecutions returns snapshots of the cached executions, most recent
// first.
func (e *Engine) ListExecutions() []*Execution {
	return e.cache.List()
}

// Cancel requests cooperative cancellation of a running execution. The
// current step finishes; the run stops at the next between-step checkpoint.
func (e *Engine) Cancel(id string) error {
	control, err := e.control(id)
	if err != nil {
		return err
	}
	control.cancel()
	return nil
}

// Pause requests the execution to hold at the next between-step checkpoint.
func (e *Engine) Pause(id string) error {
	control, err := e.control(id)
	if err != nil {
		return err
	}
	control.pause()
	return nil
}

// Resume releases a paused execution.
func (e *Engine) Resume(id string) error {
	control, err := e.control(id)
	if err != nil {
		return err
	}
	control.unpause()
	return nil
}

func (e *Engine) control(id string) (*runControl, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	control, ok := e.controls[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrKindExecution, "no active execution %q", id)
	}
	return control, nil
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// ResetMetrics zeroes the cumulative engine counters.
func (e *Engine) ResetMetrics() {
	e.metrics.Reset()
}

// ClearExecutions drops all cached execution records.
func (e *Engine) ClearExecutions() {
	e.cache.Clear()
}

// Shutdown stops accepting work, waits for in-flight executions, and closes
// the history store.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.admission.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}

	e.cache.StopJanitor()
	if e.history != nil {
		return e.history.Close()
	}
	return nil
}

func (e *Engine) stepProvider() resources.UsageProvider {
	if e.config.EnableMonitoring {
		return e.provider
	}
	return nil
}

// logf appends to the per-execution log trail.
func (e *Engine) logf(exec *Execution, level, stepID, message string) {
	exec.Logs = append(exec.Logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		StepID:  stepID,
		Message: message,
	})
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// runControl carries the cooperative pause/cancel flags for one execution.
type runControl struct {
	mu        sync.Mutex
	paused    bool
	cancelled bool
	resume    chan struct{}
}

func newRunControl() *runControl {
	return &runControl{}
}

func (c *runControl) cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	// Release a paused run so the checkpoint can observe the cancel.
	if c.paused {
		c.paused = false
		if c.resume != nil {
			close(c.resume)
			c.resume = nil
		}
	}
}

func (c *runControl) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled || c.paused {
		return
	}
	c.paused = true
	c.resume = make(chan struct{})
}

func (c *runControl) unpause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	if c.resume != nil {
		close(c.resume)
		c.resume = nil
	}
}

func (c *runControl) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *runControl) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// awaitResume blocks until the run is released or the context ends.
func (c *runControl) awaitResume(ctx context.Context) error {
	c.mu.Lock()
	ch := c.resume
	c.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
