package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

// AgentResult is the outcome of a single-worker run.
type AgentResult struct {
	Success      bool                `json:"success"`
	AgentName    string              `json:"agent_name"`
	ClaimBody    domain.Claim        `json:"claim_body"`
	Conversation []domain.TraceEntry `json:"conversation_chronological"`
}

// ListAgents returns the registered workers.
func (s *Service) ListAgents() []worker.Descriptor {
	return s.engine.Registry().Descriptors()
}

// RunAgent sends a claim to one worker. An unknown worker is reported before
// any run is recorded.
func (s *Service) RunAgent(ctx context.Context, name string, req domain.Claim) (*AgentResult, error) {
	if _, err := s.engine.Registry().Get(name); err != nil {
		return nil, err
	}
	claim, err := s.samples.Resolve(req)
	if err != nil {
		return nil, err
	}
	claimID := claim.ID()

	runID := newRunID()
	run := &domain.Run{
		RunID:     runID,
		Kind:      domain.RunKindSingle,
		ClaimID:   claimID,
		Worker:    name,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to create run")
	}
	s.logEvent(ctx, runID, domain.EventTypeRunStarted, domain.RunStartedPayload{
		Kind:    domain.RunKindSingle,
		ClaimID: claimID,
		Worker:  name,
	})

	turns, err := s.engine.RunSingle(ctx, name, claim)
	if err != nil {
		return nil, s.failRun(ctx, runID, claimID, err)
	}

	if err := s.store.AppendTraceEntries(ctx, runID, domain.NewTraceEntries(turns, true)); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to persist trace")
	}
	s.logEvent(ctx, runID, domain.EventTypeWorkerUpdate, domain.WorkerUpdatePayload{Worker: name, NewTurns: len(turns) - 1})
	if err := s.store.UpdateRunCompleted(ctx, runID, domain.RunStatusDone, "", nil); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to update run status")
	}
	s.logEvent(ctx, runID, domain.EventTypeRunDone, domain.RunDonePayload{TraceLength: len(turns)})

	return &AgentResult{
		Success:      true,
		AgentName:    name,
		ClaimBody:    claim,
		Conversation: domain.NewTraceEntries(turns, false),
	}, nil
}
