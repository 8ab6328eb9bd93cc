package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/engine"
)

// WorkflowResult is the outcome of a full team run.
type WorkflowResult struct {
	Success       bool                `json:"success"`
	FinalDecision *string             `json:"final_decision"`
	RunID         string              `json:"run_id"`
	Conversation  []domain.TraceEntry `json:"conversation_chronological"`
}

// TurnSink receives trace entries as soon as they are merged. Returning an
// error stops the run.
type TurnSink func(entries []domain.TraceEntry) error

// ProcessClaim runs a claim through the whole team and returns the trace.
func (s *Service) ProcessClaim(ctx context.Context, req domain.Claim) (*WorkflowResult, error) {
	return s.StreamClaim(ctx, req, nil)
}

// StreamClaim runs a claim through the whole team, handing merged entries to
// sink as they arrive. Failures are returned as *domain.RunFailure and the
// partial trace is dropped.
func (s *Service) StreamClaim(ctx context.Context, req domain.Claim, sink TurnSink) (*WorkflowResult, error) {
	claim, err := s.samples.Resolve(req)
	if err != nil {
		return nil, err
	}
	claimID := claim.ID()

	initial, err := engine.InitialTurn(claim, false)
	if err != nil {
		return nil, err
	}

	runID := newRunID()
	run := &domain.Run{
		RunID:     runID,
		Kind:      domain.RunKindWorkflow,
		ClaimID:   claimID,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, errors.Wrap(err, "failed to create run")
	}
	s.logEvent(ctx, runID, domain.EventTypeRunStarted, domain.RunStartedPayload{
		Kind:    domain.RunKindWorkflow,
		ClaimID: claimID,
	})
	logger := log.With().Str("run_id", runID).Str("claim_id", claimID).Logger()
	logger.Info().Msg("workflow run started")

	merger := engine.NewMerger(initial)
	var conversation []domain.TraceEntry
	deliver := func(turns []domain.Turn) error {
		entries := domain.NewTraceEntries(turns, true)
		conversation = append(conversation, entries...)
		if err := s.store.AppendTraceEntries(ctx, runID, entries); err != nil {
			return errors.Wrap(err, "failed to persist trace")
		}
		if sink != nil {
			return sink(entries)
		}
		return nil
	}

	runErr := deliver(merger.Trace())
	if runErr == nil {
		for u, err := range s.engine.Run(ctx, claim) {
			if err != nil {
				runErr = err
				break
			}
			added := merger.Apply(u)
			if len(added) == 0 {
				continue
			}
			s.logEvent(ctx, runID, domain.EventTypeWorkerUpdate, domain.WorkerUpdatePayload{
				Worker:   u.Worker,
				NewTurns: len(added),
			})
			logger.Debug().Str("worker", u.Worker).Int("new_turns", len(added)).Msg("worker update merged")
			if runErr = deliver(added); runErr != nil {
				break
			}
		}
	}
	if runErr != nil {
		return nil, s.failRun(ctx, runID, claimID, runErr)
	}

	tag := s.extractor.Extract(merger.Trace())
	if err := s.store.UpdateRunCompleted(ctx, runID, domain.RunStatusDone, string(tag), nil); err != nil {
		logger.Error().Err(err).Msg("failed to update run status")
	}
	s.logEvent(ctx, runID, domain.EventTypeRunDone, domain.RunDonePayload{
		FinalDecision: string(tag),
		TraceLength:   merger.Len(),
	})
	logger.Info().Str("final_decision", string(tag)).Int("turns", merger.Len()).Msg("workflow run finished")

	return &WorkflowResult{
		Success:       true,
		FinalDecision: tag.Ptr(),
		RunID:         runID,
		Conversation:  conversation,
	}, nil
}

// failRun marks the run FAILED, drops its partial trace and returns the
// RunFailure that callers see.
func (s *Service) failRun(ctx context.Context, runID, claimID string, cause error) error {
	// Bookkeeping must survive a cancelled request.
	bg := context.WithoutCancel(ctx)

	log.Error().Err(cause).Str("run_id", runID).Str("claim_id", claimID).Msg("run failed")
	errData, _ := json.Marshal(domain.RunFailedPayload{Message: cause.Error()})
	if err := s.store.UpdateRunCompleted(bg, runID, domain.RunStatusFailed, "", errData); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to update run status")
	}
	if err := s.store.DeleteTraceEntries(bg, runID); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to drop partial trace")
	}
	s.logEvent(bg, runID, domain.EventTypeRunFailed, domain.RunFailedPayload{Message: cause.Error()})
	return &domain.RunFailure{RunID: runID, ClaimID: claimID, Err: cause}
}
