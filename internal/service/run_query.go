package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/sample"
)

// RunDetail is a persisted run with its trace.
type RunDetail struct {
	domain.Run
	Conversation []domain.TraceEntry `json:"conversation_chronological"`
}

func (s *Service) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "run %s", runID)
	}
	entries, err := s.store.GetTraceEntries(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run trace: %w", err)
	}
	if entries == nil {
		entries = []domain.TraceEntry{}
	}
	return &RunDetail{Run: *run, Conversation: entries}, nil
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	runs, err := s.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (s *Service) GetRunEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	events, err := s.store.GetEvents(ctx, runID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get run events: %w", err)
	}
	return events, nil
}

// SampleClaims lists the canned demo claims.
func (s *Service) SampleClaims() []sample.Summary {
	return s.samples.List()
}
