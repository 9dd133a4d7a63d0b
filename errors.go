package nutriagent

import (
	"fmt"
	"time"
)

// The error taxonomy exposed at the engine boundary. Every failure crossing
// the boundary is one of these structured kinds, never a raw stack trace.

// ValidationError reports a malformed or missing required profile field. It
// is surfaced to the caller as-is; retrying without fixing the field is
// pointless.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Message)
}

// InsufficientDataError reports that the biometric stream carried no usable
// readings and no demographic fallback was requested.
type InsufficientDataError struct {
	Message string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient biometric data: %s", e.Message)
}

// InfeasiblePlanError reports that no hard-constraint-satisfying plan exists,
// naming the constraint that could not be satisfied.
type InfeasiblePlanError struct {
	Constraint string
	Message    string
}

func (e *InfeasiblePlanError) Error() string {
	return fmt.Sprintf("no feasible plan: constraint %q unsatisfiable: %s", e.Constraint, e.Message)
}

// AgentTimeoutError reports that a pipeline stage exceeded its configured
// timeout. The coordinator decides whether the stage was mandatory.
type AgentTimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *AgentTimeoutError) Error() string {
	return fmt.Sprintf("stage %q timed out after %s", e.Stage, e.Timeout)
}

// RequestCancelledError reports cooperative cancellation. No partial plan is
// ever returned alongside it.
type RequestCancelledError struct {
	Stage string
}

func (e *RequestCancelledError) Error() string {
	return fmt.Sprintf("request cancelled before stage %q completed", e.Stage)
}

// NotFoundError reports a catalog miss.
type NotFoundError struct {
	FoodID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("food %q not found in catalog", e.FoodID)
}
