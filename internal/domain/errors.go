package domain

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrKnowledgeSourceUnavailable is returned by the knowledge source while it
// has no usable index. Workers treat it as "no evidence found".
var ErrKnowledgeSourceUnavailable = errors.New("knowledge source unavailable")

// UnknownWorkerError is returned when a worker name is not registered.
type UnknownWorkerError struct {
	Name  string
	Known []string
}

func (e *UnknownWorkerError) Error() string {
	return fmt.Sprintf("unknown agent '%s'. Available: [%s]", e.Name, strings.Join(e.Known, ", "))
}

// InvalidDispatchError is returned when the dispatcher selects a worker that is
// not part of the configured set.
type InvalidDispatchError struct {
	Name string
}

func (e *InvalidDispatchError) Error() string {
	return fmt.Sprintf("dispatcher selected unknown worker %q", e.Name)
}

// CapabilityError wraps a failed capability call.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// UnknownClaimError is returned when a sample claim id does not exist.
type UnknownClaimError struct {
	ClaimID string
	Known   []string
}

func (e *UnknownClaimError) Error() string {
	return fmt.Sprintf("Claim ID '%s' not found. Available sample claim IDs: [%s]", e.ClaimID, strings.Join(e.Known, ", "))
}

// RunFailure aborts a run. The trace merged so far is discarded.
type RunFailure struct {
	RunID   string
	ClaimID string
	Err     error
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("run %s failed: %v", e.RunID, e.Err)
}

func (e *RunFailure) Unwrap() error { return e.Err }

// ErrNotFound is returned by lookups of persisted records.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
