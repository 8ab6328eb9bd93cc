// Package domain defines the core domain models for the claims orchestrator.
package domain

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "user"
	RoleWorker Role = "assistant"
	RoleTool   Role = "tool"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusDone    RunStatus = "DONE"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunKind distinguishes orchestrated runs from single-worker runs.
type RunKind string

const (
	RunKindWorkflow RunKind = "workflow"
	RunKindSingle   RunKind = "single"
)

// EventType represents the type of an event.
type EventType string

const (
	EventTypeRunStarted   EventType = "run_started"
	EventTypeWorkerUpdate EventType = "worker_update"
	EventTypeRunDone      EventType = "run_done"
	EventTypeRunFailed    EventType = "run_failed"
)

// DocumentCategory groups uploaded documents on disk and in listings.
type DocumentCategory string

const (
	DocumentCategoryPolicy     DocumentCategory = "policy"
	DocumentCategoryRegulation DocumentCategory = "regulation"
	DocumentCategoryReference  DocumentCategory = "reference"
)

// Valid reports whether c is one of the known categories.
func (c DocumentCategory) Valid() bool {
	switch c {
	case DocumentCategoryPolicy, DocumentCategoryRegulation, DocumentCategoryReference:
		return true
	}
	return false
}

// IndexState summarises the knowledge index lifecycle.
type IndexState string

const (
	IndexStateEmpty IndexState = "empty"
	IndexStateReady IndexState = "ready"
	IndexStateError IndexState = "error"
)
