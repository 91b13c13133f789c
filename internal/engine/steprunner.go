package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/helion-data/scanflow/internal/actions"
	"github.com/helion-data/scanflow/internal/expressions"
	"github.com/helion-data/scanflow/internal/logging"
	"github.com/helion-data/scanflow/internal/resources"
	"github.com/helion-data/scanflow/pkg/schema"
)

// StepRunner executes a single step: guard condition, action dispatch, retry
// loop with linear backoff, and result bookkeeping. Run always returns a
// StepResult, never nil, whatever went wrong.
type StepRunner struct {
	registry *actions.Registry
	cel      *expressions.CELEngine
	breakers *CircuitBreakerRegistry
	provider resources.UsageProvider
	logger   *slog.Logger

	maxRetries int
	retryDelay time.Duration
}

// NewStepRunner creates a runner. breakers and provider may be nil when the
// corresponding features are off.
func NewStepRunner(registry *actions.Registry, cel *expressions.CELEngine, breakers *CircuitBreakerRegistry, provider resources.UsageProvider, logger *slog.Logger, maxRetries int, retryDelay time.Duration) *StepRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &StepRunner{
		registry:   registry,
		cel:        cel,
		breakers:   breakers,
		provider:   provider,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Run executes the step against the shared execution context. The context
// map carries "steps", "inputs", "workflow" and "context" entries for guard
// conditions and transformations.
func (r *StepRunner) Run(ctx context.Context, step *schema.Step, execCtx map[string]any) *StepResult {
	ctx = logging.WithStepID(ctx, step.ID)

	result := &StepResult{
		StepID:    step.ID,
		Name:      step.Name,
		Status:    schema.StepStatusPending,
		Outputs:   make(map[string]any),
		StartTime: time.Now(),
	}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
	}()

	// Guard condition: false skips the step without error.
	if step.Condition != "" {
		ok, err := r.cel.EvaluateBool(ctx, step.Condition, execCtx)
		if err != nil {
			result.Errors = append(result.Errors, asFlowError(err).WithStep(step.ID))
			_ = TransitionStep(result, schema.StepStatusRunning)
			_ = TransitionStep(result, schema.StepStatusFailed)
			return result
		}
		if !ok {
			r.logger.DebugContext(ctx, "step skipped by condition", slog.String("condition", step.Condition))
			_ = TransitionStep(result, schema.StepStatusSkipped)
			return result
		}
	}

	stepCtx := ctx
	if step.Timeout != "" {
		if d, err := time.ParseDuration(step.Timeout); err == nil && d > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
	}

	_ = TransitionStep(result, schema.StepStatusRunning)

	for {
		err := r.attempt(stepCtx, step, execCtx, result)
		if err == nil {
			_ = TransitionStep(result, schema.StepStatusCompleted)
			return result
		}

		ferr := asFlowError(err).WithStep(step.ID)

		if errors.Is(err, context.Canceled) {
			result.Errors = append(result.Errors, ferr)
			_ = TransitionStep(result, schema.StepStatusCancelled)
			return result
		}

		if !IsRetryableError(err) {
			result.Errors = append(result.Errors, ferr.WithRetry(result.Retries, r.maxRetries))
			_ = TransitionStep(result, schema.StepStatusFailed)
			return result
		}

		if result.Retries >= r.maxRetries {
			// Budget spent: the failure is final and graded critical.
			result.Errors = append(result.Errors,
				ferr.WithSeverity(schema.SeverityCritical).WithRetry(result.Retries, r.maxRetries))
			_ = TransitionStep(result, schema.StepStatusFailed)
			return result
		}

		result.Retries++
		result.Errors = append(result.Errors,
			ferr.WithSeverity(schema.SeverityMedium).WithRetry(result.Retries, r.maxRetries))

		r.logger.WarnContext(ctx, "step attempt failed, retrying",
			slog.Int("retry", result.Retries),
			slog.Int("max_retries", r.maxRetries),
			slog.String("error", err.Error()))

		_ = TransitionStep(result, schema.StepStatusRetrying)
		if werr := WaitForBackoff(stepCtx, Backoff(r.retryDelay, result.Retries)); werr != nil {
			result.Errors = append(result.Errors, asFlowError(werr).WithStep(step.ID))
			if errors.Is(werr, context.Canceled) {
				_ = TransitionStep(result, schema.StepStatusCancelled)
			} else {
				_ = TransitionStep(result, schema.StepStatusFailed)
			}
			return result
		}
		_ = TransitionStep(result, schema.StepStatusRunning)
	}
}

// attempt runs every action of the step once, in order. Outputs merge
// last-write-wins; warnings accumulate. The first action error aborts the
// attempt.
func (r *StepRunner) attempt(ctx context.Context, step *schema.Step, execCtx map[string]any, result *StepResult) error {
	if r.provider != nil {
		if usage, err := r.provider.Sample(ctx); err == nil {
			result.Resources = &usage
		}
	}

	for i := range step.Actions {
		action := &step.Actions[i]
		kind := string(action.Kind)

		handler, err := r.registry.Resolve(kind)
		if err != nil {
			return err
		}

		if r.breakers != nil {
			if err := r.breakers.AllowRequest(kind); err != nil {
				return err
			}
		}

		params, err := decodeParams(action.Params)
		if err != nil {
			return schema.NewErrorf(schema.ErrKindValidation,
				"action %q has malformed params", kind).WithCause(err)
		}

		out, err := handler.Execute(ctx, actions.Input{
			Params:  params,
			Context: execCtx,
		})
		if err != nil {
			if r.breakers != nil {
				r.breakers.RecordFailure(kind)
			}
			return err
		}
		if r.breakers != nil {
			r.breakers.RecordSuccess(kind)
		}

		if out != nil {
			for k, v := range out.Outputs {
				result.Outputs[k] = v
			}
			result.Warnings = append(result.Warnings, out.Warnings...)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}

func decodeParams(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// asFlowError coerces any error into a FlowError, classifying timeouts and
// cancellations by kind.
func asFlowError(err error) *schema.FlowError {
	var ferr *schema.FlowError
	if errors.As(err, &ferr) {
		return ferr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return schema.NewError(schema.ErrKindTimeout, "deadline exceeded").WithCause(err)
	case errors.Is(err, context.Canceled):
		return schema.NewError(schema.ErrKindExecution, "cancelled").WithCause(err)
	default:
		return schema.NewError(schema.ErrKindExecution, err.Error()).WithCause(err)
	}
}
