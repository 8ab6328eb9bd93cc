// Package engine runs claims through the worker team and merges the result
// into a single trace.
package engine

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/dispatch"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

// DefaultMaxSteps bounds the number of dispatch steps in one run.
const DefaultMaxSteps = 25

// ErrStepBudgetExceeded is returned when a run does not terminate within the
// configured number of steps.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

const (
	teamPreamble   = "Please process this insurance claim through your team of specialists:\n\n"
	singlePreamble = "Please process this insurance claim:\n\n"
)

// Engine drives runs. It holds no per-run state and may be shared.
type Engine struct {
	registry   *worker.Registry
	dispatcher *dispatch.Dispatcher
	maxSteps   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets the dispatch step budget.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// New creates an Engine.
func New(registry *worker.Registry, dispatcher *dispatch.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		registry:   registry,
		dispatcher: dispatcher,
		maxSteps:   DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the worker registry.
func (e *Engine) Registry() *worker.Registry { return e.registry }

// InitialTurn renders the claim as the opening human turn.
func InitialTurn(claim domain.Claim, single bool) (domain.Turn, error) {
	body, err := json.MarshalIndent(claim, "", "  ")
	if err != nil {
		return domain.Turn{}, errors.Wrap(err, "failed to encode claim")
	}
	preamble := teamPreamble
	if single {
		preamble = singlePreamble
	}
	return domain.Turn{Role: domain.RoleHuman, Content: preamble + string(body)}, nil
}

// Run returns a lazy sequence of worker updates for one claim. Nothing happens
// until the caller ranges over it, and breaking out of the range stops the run.
// An error is yielded at most once, as the last element.
func (e *Engine) Run(ctx context.Context, claim domain.Claim) iter.Seq2[domain.WorkerUpdate, error] {
	return func(yield func(domain.WorkerUpdate, error) bool) {
		initial, err := InitialTurn(claim, false)
		if err != nil {
			yield(domain.WorkerUpdate{}, err)
			return
		}

		conversation := NewMerger(initial)
		cumulative := make(map[string][]domain.Turn)
		emit := func(name string, turns []domain.Turn) bool {
			if len(turns) == 0 {
				return true
			}
			cumulative[name] = append(cumulative[name], turns...)
			u := domain.WorkerUpdate{Worker: name, TurnsSoFar: append([]domain.Turn(nil), cumulative[name]...)}
			conversation.Apply(u)
			return yield(u, nil)
		}

		for step := 0; ; step++ {
			if err := ctx.Err(); err != nil {
				yield(domain.WorkerUpdate{}, err)
				return
			}
			if step >= e.maxSteps {
				yield(domain.WorkerUpdate{}, errors.Wrapf(ErrStepBudgetExceeded, "no termination after %d steps", e.maxSteps))
				return
			}

			sel, err := e.dispatcher.Next(ctx, conversation.Trace())
			if err != nil {
				yield(domain.WorkerUpdate{}, err)
				return
			}
			if !emit(dispatch.SupervisorName, sel.Turns) {
				return
			}
			if sel.Terminate {
				return
			}

			w, err := e.registry.Get(sel.Worker)
			if err != nil {
				yield(domain.WorkerUpdate{}, err)
				return
			}
			log.Debug().Int("step", step).Str("worker", sel.Worker).Msg("dispatching worker")

			turns, err := w.Invoke(ctx, conversation.Trace())
			if err != nil {
				yield(domain.WorkerUpdate{}, errors.Wrapf(err, "worker %s failed", sel.Worker))
				return
			}
			if !emit(sel.Worker, turns) {
				return
			}
		}
	}
}

// RunSingle sends the claim to one worker. The worker is looked up before
// anything else happens, so an unknown name has no side effects. The result
// is the initial turn followed by the worker's turns.
func (e *Engine) RunSingle(ctx context.Context, name string, claim domain.Claim) ([]domain.Turn, error) {
	w, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}

	initial, err := InitialTurn(claim, true)
	if err != nil {
		return nil, err
	}

	turns, err := w.Invoke(ctx, []domain.Turn{initial})
	if err != nil {
		return nil, errors.Wrapf(err, "worker %s failed", name)
	}

	m := NewMerger(initial)
	m.Apply(domain.WorkerUpdate{Worker: name, TurnsSoFar: turns})
	return m.Trace(), nil
}
