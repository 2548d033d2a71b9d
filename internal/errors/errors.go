// Package errors provides centralized error definitions and error handling
// utilities for the Fangio codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewPlanError("execute plan", errors.ErrPlanNotFound).WithPlanID("plan-1")
//
//	// Semantic error
//	err := errors.NewNotFoundError("plan", "plan-1")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrPlanNotFound) { ... }
//
//	var planErr *errors.PlanError
//	if errors.As(err, &planErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Plan-related sentinel errors
var (
	// ErrPlanNotFound indicates that a plan could not be found.
	ErrPlanNotFound = New("plan not found")
	// ErrPlanInvalid indicates that a plan violates the plan contract.
	ErrPlanInvalid = New("plan is invalid")
	// ErrRunNotFound indicates that a persisted run could not be found.
	ErrRunNotFound = New("run not found")
	// ErrApprovalsExpired indicates that one or more step approvals have
	// outlived their TTL and must be re-granted.
	ErrApprovalsExpired = New("one or more step approvals have expired")
)

// Tool-related sentinel errors
var (
	// ErrToolNotFound indicates that a tool name is not in the catalog.
	ErrToolNotFound = New("tool not found in catalog")
)

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) IsRetryable() bool  { return e.retryable }
func (e *baseError) IsUserFacing() bool { return e.userFacing }

// PlanError represents errors related to plan storage, approval, and
// execution.
//
// Example:
//
//	err := errors.NewPlanError("execute plan", errors.ErrPlanNotFound).
//		WithPlanID("plan-1").WithStepID("step-2")
type PlanError struct {
	baseError
	PlanID string
	StepID string
}

// NewPlanError creates a new PlanError.
func NewPlanError(message string, cause error) *PlanError {
	return &PlanError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithPlanID adds a plan ID to the error context.
func (e *PlanError) WithPlanID(id string) *PlanError {
	e.PlanID = id
	return e
}

// WithStepID adds a step ID to the error context.
func (e *PlanError) WithStepID(id string) *PlanError {
	e.StepID = id
	return e
}

// Error returns the formatted error message.
func (e *PlanError) Error() string {
	var parts []string
	if e.PlanID != "" {
		parts = append(parts, fmt.Sprintf("plan=%s", e.PlanID))
	}
	if e.StepID != "" {
		parts = append(parts, fmt.Sprintf("step=%s", e.StepID))
	}

	prefix := "plan error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("plan error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PlanError) Is(target error) bool {
	if _, ok := target.(*PlanError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ToolError represents errors from tool catalog lookups and subprocess
// execution.
type ToolError struct {
	baseError
	Tool string
}

// NewToolError creates a new ToolError.
func NewToolError(message string, cause error) *ToolError {
	return &ToolError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithTool adds the tool name to the error context.
func (e *ToolError) WithTool(name string) *ToolError {
	e.Tool = name
	return e
}

// Error returns the formatted error message.
func (e *ToolError) Error() string {
	prefix := "tool error"
	if e.Tool != "" {
		prefix = fmt.Sprintf("tool error [tool=%s]", e.Tool)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ToolError) Is(target error) bool {
	if _, ok := target.(*ToolError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// NotFoundError indicates that a resource could not be found.
type NotFoundError struct {
	baseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found", resource),
			severity:   SeverityWarning,
			userFacing: true,
		},
		Resource: resource,
		ID:       id,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	switch e.Resource {
	case "plan":
		return target == ErrPlanNotFound
	case "run":
		return target == ErrRunNotFound
	case "tool":
		return target == ErrToolNotFound
	}
	return false
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	baseError
	Field string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds the offending field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	prefix := "validation error"
	if e.Field != "" {
		prefix = fmt.Sprintf("validation error [field=%s]", e.Field)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrToolNotFound) ||
		errors.As(err, &nf)
}

// classifier is implemented by the error types in this package.
type classifier interface {
	IsRetryable() bool
	IsUserFacing() bool
}

// IsRetryable reports whether the operation that produced err may succeed
// on retry.
func IsRetryable(err error) bool {
	var c classifier
	if errors.As(err, &c) {
		return c.IsRetryable()
	}
	return false
}

// IsUserFacing reports whether err's message is safe to display to end
// users.
func IsUserFacing(err error) bool {
	var c classifier
	if errors.As(err, &c) {
		return c.IsUserFacing()
	}
	return false
}
