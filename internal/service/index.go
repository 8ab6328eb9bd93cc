package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/knowledge"
	store "github.com/yassinsws/microsoft-agent-hackathon/internal/repository"
)

// RebuildResult reports what an index rebuild did.
type RebuildResult struct {
	Rebuilt bool               `json:"rebuilt"`
	Status  domain.IndexStatus `json:"status"`
}

func (s *Service) IndexStatus(ctx context.Context) (domain.IndexStatus, error) {
	if s.index == nil {
		return domain.IndexStatus{}, domain.ErrKnowledgeSourceUnavailable
	}
	return s.index.Status(ctx)
}

// RebuildIndex rebuilds the knowledge index. With includeUploaded, uploaded
// text documents are marked indexed afterwards.
func (s *Service) RebuildIndex(ctx context.Context, force, includeUploaded bool) (*RebuildResult, error) {
	if s.index == nil {
		return nil, domain.ErrKnowledgeSourceUnavailable
	}
	rebuilt, err := s.index.Rebuild(ctx, knowledge.RebuildOptions{Force: force, IncludeUploaded: includeUploaded})
	if err != nil {
		return nil, err
	}
	if rebuilt && includeUploaded {
		s.markUploadedIndexed(ctx)
	}
	st, err := s.index.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &RebuildResult{Rebuilt: rebuilt, Status: st}, nil
}

// ResetIndex drops uploaded documents from the index and rebuilds it from
// the canonical policies only.
func (s *Service) ResetIndex(ctx context.Context) (*RebuildResult, error) {
	if s.index == nil {
		return nil, domain.ErrKnowledgeSourceUnavailable
	}
	if err := s.store.ResetDocumentsIndexed(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to reset document index flags")
	}
	return s.RebuildIndex(ctx, true, false)
}

func (s *Service) markUploadedIndexed(ctx context.Context) {
	docs, err := s.store.ListDocuments(ctx, store.DocumentFilter{})
	if err != nil {
		log.Error().Err(err).Msg("failed to list documents")
		return
	}
	for _, d := range docs {
		if !knowledge.Indexable(d.Filename) || d.Indexed {
			continue
		}
		if err := s.store.SetDocumentIndexed(ctx, d.ID, true); err != nil {
			log.Error().Err(err).Str("document_id", d.ID).Msg("failed to mark document indexed")
		}
	}
}
