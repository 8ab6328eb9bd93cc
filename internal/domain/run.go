package domain

import (
	"encoding/json"
	"time"
)

// Run represents a single processing of a claim, either by the full team or by
// one worker.
type Run struct {
	RunID         string          `json:"run_id"`
	Kind          RunKind         `json:"kind"`
	ClaimID       string          `json:"claim_id,omitempty"`
	Worker        string          `json:"worker,omitempty"`
	Status        RunStatus       `json:"status"`
	FinalDecision string          `json:"final_decision,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	Error         json.RawMessage `json:"error,omitempty"`
}

// Event represents a trace event for replay.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RunStartedPayload is recorded when a run begins.
type RunStartedPayload struct {
	Kind    RunKind `json:"kind"`
	ClaimID string  `json:"claim_id,omitempty"`
	Worker  string  `json:"worker,omitempty"`
}

// WorkerUpdatePayload is recorded for every update the engine yields.
type WorkerUpdatePayload struct {
	Worker   string `json:"worker_name"`
	NewTurns int    `json:"new_turns"`
}

// RunDonePayload is recorded when a run finishes.
type RunDonePayload struct {
	FinalDecision string `json:"final_decision,omitempty"`
	TraceLength   int    `json:"trace_length"`
}

// RunFailedPayload is recorded when a run aborts.
type RunFailedPayload struct {
	Message string `json:"message"`
}

// Document is an uploaded file tracked for knowledge indexing.
type Document struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	Category    DocumentCategory `json:"category"`
	Path        string           `json:"path"`
	ContentType string           `json:"content_type,omitempty"`
	Size        int64            `json:"size"`
	Indexed     bool             `json:"indexed"`
	UploadedAt  time.Time        `json:"uploaded_at"`
}

// IndexStatus reports the current state of the knowledge index.
type IndexStatus struct {
	State         IndexState `json:"status"`
	Chunks        int        `json:"total_chunks"`
	Sources       int        `json:"total_documents"`
	EmbeddingDims int        `json:"embedding_dimensions"`
	LastBuiltAt   *time.Time `json:"last_built_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// ChunkOrigin distinguishes canonical policy chunks from uploaded ones.
type ChunkOrigin string

const (
	ChunkOriginCanonical ChunkOrigin = "canonical"
	ChunkOriginUploaded  ChunkOrigin = "uploaded"
)

// Chunk is an embedded piece of a knowledge document.
type Chunk struct {
	ID         string      `json:"id"`
	Source     string      `json:"source"`
	Origin     ChunkOrigin `json:"origin"`
	PolicyType string      `json:"policy_type"`
	Section    string      `json:"section"`
	Content    string      `json:"content"`
	Embedding  []float32   `json:"-"`

	// EmbeddingModel identifies the provider that produced Embedding.
	EmbeddingModel string `json:"-"`
}
