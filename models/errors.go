package models

import "fmt"

// ValidationError rejects malformed input before anything is persisted
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError indicates an unknown session, case or option
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError indicates a duplicate response, a stale round, or a write
// against an already-terminal session. Never retried automatically.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// TransientDependencyError wraps a failure of an external collaborator
// (notification, compromise generation, court filing). The state transition
// that triggered the call is never rolled back because of one.
type TransientDependencyError struct {
	Dependency string
	Err        error
}

func (e *TransientDependencyError) Error() string {
	return fmt.Sprintf("%s dependency failed: %v", e.Dependency, e.Err)
}

func (e *TransientDependencyError) Unwrap() error { return e.Err }

// FatalAtomicityError indicates a create operation could not commit the
// session and its participants as one unit; nothing was persisted.
type FatalAtomicityError struct {
	Op  string
	Err error
}

func (e *FatalAtomicityError) Error() string {
	return fmt.Sprintf("atomic %s failed, nothing committed: %v", e.Op, e.Err)
}

func (e *FatalAtomicityError) Unwrap() error { return e.Err }
