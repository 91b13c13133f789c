package schema

import "fmt"

// ErrorKind classifies engine errors by origin.
type ErrorKind string

const (
	ErrKindExecution  ErrorKind = "execution"  // an action handler failed
	ErrKindDependency ErrorKind = "dependency" // unmet or circular dependency
	ErrKindResource   ErrorKind = "resource"   // pre-flight resource gate refused the run
	ErrKindTimeout    ErrorKind = "timeout"    // cooperative deadline exceeded
	ErrKindValidation ErrorKind = "validation" // malformed workflow definition
	ErrKindSystem     ErrorKind = "system"     // unexpected engine fault
)

// Severity grades how serious an error is for the overall run.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// FlowError is the structured error type for all engine operations. It carries
// the taxonomy kind, a severity, whether a retry could help, and retry
// bookkeeping for errors raised inside the step retry loop.
type FlowError struct {
	Kind       ErrorKind      `json:"kind"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	StepID     string         `json:"step_id,omitempty"`
	Retryable  bool           `json:"retryable"`
	RetryCount int            `json:"retry_count,omitempty"`
	MaxRetries int            `json:"max_retries,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *FlowError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Kind, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewError creates a FlowError with the default severity and retryability for
// its kind.
func NewError(kind ErrorKind, message string) *FlowError {
	return &FlowError{
		Kind:      kind,
		Severity:  defaultSeverity(kind),
		Message:   message,
		Retryable: defaultRetryable(kind),
	}
}

// NewErrorf creates a FlowError with a formatted message.
func NewErrorf(kind ErrorKind, format string, args ...any) *FlowError {
	return NewError(kind, fmt.Sprintf(format, args...))
}

// WithStep attaches a step ID to the error.
func (e *FlowError) WithStep(stepID string) *FlowError {
	e.StepID = stepID
	return e
}

// WithSeverity overrides the kind's default severity.
func (e *FlowError) WithSeverity(s Severity) *FlowError {
	e.Severity = s
	return e
}

// WithRetry records the retry bookkeeping at the time the error was raised.
func (e *FlowError) WithRetry(count, max int) *FlowError {
	e.RetryCount = count
	e.MaxRetries = max
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowError) WithDetails(details map[string]any) *FlowError {
	e.Details = details
	return e
}

func defaultSeverity(kind ErrorKind) Severity {
	switch kind {
	case ErrKindValidation, ErrKindDependency:
		return SeverityHigh
	case ErrKindResource, ErrKindTimeout:
		return SeverityHigh
	case ErrKindSystem:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

func defaultRetryable(kind ErrorKind) bool {
	switch kind {
	case ErrKindValidation, ErrKindDependency, ErrKindSystem:
		return false
	default:
		return true
	}
}
