// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, finalDecision string, errData []byte) error

	// Trace operations
	AppendTraceEntries(ctx context.Context, runID string, entries []domain.TraceEntry) error
	GetTraceEntries(ctx context.Context, runID string) ([]domain.TraceEntry, error)
	DeleteTraceEntries(ctx context.Context, runID string) error

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Document operations
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]domain.Document, error)
	SetDocumentIndexed(ctx context.Context, id string, indexed bool) error
	ResetDocumentsIndexed(ctx context.Context) error
	DeleteDocument(ctx context.Context, id string) (bool, error)

	// Knowledge chunk operations
	ReplaceChunks(ctx context.Context, chunks []domain.Chunk) error
	AddChunks(ctx context.Context, source string, chunks []domain.Chunk) error
	DeleteChunks(ctx context.Context, source string) error
	ListChunks(ctx context.Context) ([]domain.Chunk, error)

	// Lifecycle
	Close() error
}

// DocumentFilter provides filtering options for documents.
type DocumentFilter struct {
	Category    domain.DocumentCategory
	IndexedOnly bool
}
