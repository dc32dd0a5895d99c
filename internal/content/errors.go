package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload reports a payload that is not a JSON object of the expected shape.
var ErrInvalidPayload = errors.New("invalid payload")

// MissingFieldError reports a required field absent under every alias.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// UnresolvedAnswerError reports an answer that maps to no option or boolean.
type UnresolvedAnswerError struct {
	Raw any
}

func (e *UnresolvedAnswerError) Error() string {
	return fmt.Sprintf("unresolved answer %#v", e.Raw)
}

// Issue is a single structural problem found on a day.
type Issue struct {
	Path    string
	Message string
}

// StructuralViolationError rejects a whole day.
type StructuralViolationError struct {
	Issues []Issue
}

func (e *StructuralViolationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "structural violation"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return fmt.Sprintf("structural violation: %s", strings.Join(parts, "; "))
}

// MissingDependencyError reports a create whose parent has no generated id.
type MissingDependencyError struct {
	Entity string
	Parent string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s skipped: parent %s has no id", e.Entity, e.Parent)
}

// PersistenceError wraps a failed store call.
type PersistenceError struct {
	Entity string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", e.Op, e.Entity)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err blocks persistence entirely.
func IsValidation(err error) bool {
	var missing *MissingFieldError
	var structural *StructuralViolationError
	return errors.Is(err, ErrInvalidPayload) || errors.As(err, &missing) || errors.As(err, &structural)
}
