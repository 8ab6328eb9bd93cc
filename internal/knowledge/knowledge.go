// Package knowledge indexes policy documents and answers similarity queries
// over them.
package knowledge

import (
	"context"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

const (
	DefaultTopK         = 5
	DefaultMinRelevance = 0.3
)

// Result is one search hit. Relevance is 1/(1+L2 distance).
type Result struct {
	Content    string  `json:"content"`
	Section    string  `json:"section"`
	Source     string  `json:"source"`
	PolicyType string  `json:"policy_type"`
	Relevance  float64 `json:"relevance_score"`
}

// Document is a text document to be indexed.
type Document struct {
	// Source identifies the document; chunks are replaced per source.
	Source string
	// Filename decides indexability and the policy type label.
	Filename string
	Origin   domain.ChunkOrigin
	Text     string
}

// RebuildOptions controls Rebuild.
type RebuildOptions struct {
	Force           bool
	IncludeUploaded bool
}

// Source is a searchable knowledge index.
type Source interface {
	Search(ctx context.Context, query string, topK int, minRelevance float64) ([]Result, error)
	Add(ctx context.Context, doc Document) (bool, error)
	Rebuild(ctx context.Context, opts RebuildOptions) (bool, error)
	Status(ctx context.Context) (domain.IndexStatus, error)
}

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	ReplaceChunks(ctx context.Context, chunks []domain.Chunk) error
	AddChunks(ctx context.Context, source string, chunks []domain.Chunk) error
	DeleteChunks(ctx context.Context, source string) error
	ListChunks(ctx context.Context) ([]domain.Chunk, error)
}

// UploadedLoader returns uploaded documents that should be part of a rebuild.
type UploadedLoader func(ctx context.Context) ([]Document, error)
