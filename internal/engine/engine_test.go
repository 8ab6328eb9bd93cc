package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/dispatch"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

type scriptedWorker struct {
	name     string
	perCall  int
	calls    int
	seenLens []int
	err      error
}

func (w *scriptedWorker) Name() string        { return w.name }
func (w *scriptedWorker) Description() string { return "scripted " + w.name }

func (w *scriptedWorker) Invoke(ctx context.Context, conversation []domain.Turn) ([]domain.Turn, error) {
	w.calls++
	w.seenLens = append(w.seenLens, len(conversation))
	if w.err != nil {
		return nil, w.err
	}
	n := w.perCall
	if n == 0 {
		n = 1
	}
	out := make([]domain.Turn, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Turn{Role: domain.RoleWorker, Content: fmt.Sprintf("%s call %d turn %d", w.name, w.calls, i)})
	}
	return out, nil
}

type scriptedSelector struct {
	picks   []string
	final   string
	handoff bool
	calls   int
}

func (s *scriptedSelector) SelectNext(ctx context.Context, trace []domain.Turn, workers []worker.Descriptor) (dispatch.Selection, error) {
	s.calls++
	if len(s.picks) == 0 {
		return dispatch.Selection{
			Terminate: true,
			Turns:     []domain.Turn{{Role: domain.RoleWorker, Content: s.final}},
		}, nil
	}
	name := s.picks[0]
	s.picks = s.picks[1:]
	sel := dispatch.Selection{Worker: name}
	if s.handoff {
		sel.Turns = []domain.Turn{{Role: domain.RoleWorker, Content: "handing to " + name}}
	}
	return sel, nil
}

func newTestEngine(t *testing.T, sel dispatch.Selector, workers ...worker.Worker) *Engine {
	t.Helper()
	reg, err := worker.NewRegistry(workers...)
	require.NoError(t, err)
	return New(reg, dispatch.New(sel, reg))
}

func collect(t *testing.T, e *Engine, claim domain.Claim) ([]domain.WorkerUpdate, error) {
	t.Helper()
	var updates []domain.WorkerUpdate
	for u, err := range e.Run(context.Background(), claim) {
		if err != nil {
			return updates, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func TestRunMergesCumulativeUpdates(t *testing.T) {
	a := &scriptedWorker{name: "a", perCall: 2}
	b := &scriptedWorker{name: "b"}
	sel := &scriptedSelector{picks: []string{"a", "b", "a"}, final: "ASSESSMENT_COMPLETE: APPROVED"}
	e := newTestEngine(t, sel, a, b)

	updates, err := collect(t, e, domain.Claim{"claim_id": "C-1"})
	require.NoError(t, err)

	// a, b, a, supervisor
	require.Len(t, updates, 4)
	assert.Equal(t, "a", updates[0].Worker)
	assert.Len(t, updates[0].TurnsSoFar, 2)
	assert.Equal(t, "a", updates[2].Worker)
	assert.Len(t, updates[2].TurnsSoFar, 4)
	assert.Equal(t, updates[0].TurnsSoFar[0].Content, updates[2].TurnsSoFar[0].Content)
	assert.Equal(t, dispatch.SupervisorName, updates[3].Worker)

	m := NewMerger()
	for _, u := range updates {
		m.Apply(u)
	}
	trace := m.Trace()
	assert.Len(t, trace, 4+1+1)
	assert.Equal(t, TagApproved, NewExtractor().Extract(trace))

	// Workers see the initial turn plus everything merged before them.
	assert.Equal(t, []int{1, 4}, a.seenLens)
	assert.Equal(t, []int{3}, b.seenLens)
}

func TestRunInitialTurnCarriesClaim(t *testing.T) {
	var seen []domain.Turn
	w := &captureWorker{name: "a", seen: &seen}
	e := newTestEngine(t, &scriptedSelector{picks: []string{"a"}}, w)

	_, err := collect(t, e, domain.Claim{"claim_id": "C-9", "estimated_damage": 10})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, domain.RoleHuman, seen[0].Role)
	assert.True(t, strings.HasPrefix(seen[0].Content, teamPreamble))
	assert.Contains(t, seen[0].Content, `"claim_id": "C-9"`)
}

func TestRunEmitsSupervisorTurns(t *testing.T) {
	a := &scriptedWorker{name: "a"}
	sel := &scriptedSelector{picks: []string{"a"}, handoff: true, final: "done"}
	e := newTestEngine(t, sel, a)

	updates, err := collect(t, e, domain.Claim{})
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, dispatch.SupervisorName, updates[0].Worker)
	assert.Len(t, updates[0].TurnsSoFar, 1)
	assert.Equal(t, dispatch.SupervisorName, updates[2].Worker)
	assert.Len(t, updates[2].TurnsSoFar, 2)
}

func TestRunInvalidDispatchIsTerminalError(t *testing.T) {
	a := &scriptedWorker{name: "a"}
	sel := &scriptedSelector{picks: []string{"a", "ghost", "a"}}
	e := newTestEngine(t, sel, a)

	var updates []domain.WorkerUpdate
	var errs []error
	for u, err := range e.Run(context.Background(), domain.Claim{}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		updates = append(updates, u)
	}

	require.Len(t, errs, 1)
	var invalid *domain.InvalidDispatchError
	require.True(t, errors.As(errs[0], &invalid))
	assert.Equal(t, "ghost", invalid.Name)
	assert.Len(t, updates, 1)
	assert.Equal(t, 1, a.calls)
}

func TestRunWorkerErrorAbortsRun(t *testing.T) {
	boom := errors.New("model unavailable")
	a := &scriptedWorker{name: "a", err: boom}
	e := newTestEngine(t, &scriptedSelector{picks: []string{"a"}}, a)

	updates, err := collect(t, e, domain.Claim{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, updates)
}

func TestRunIsLazyAndStopsWhenCallerStops(t *testing.T) {
	a := &scriptedWorker{name: "a"}
	b := &scriptedWorker{name: "b"}
	sel := &scriptedSelector{picks: []string{"a", "b", "a", "b"}}
	e := newTestEngine(t, sel, a, b)

	seq := e.Run(context.Background(), domain.Claim{})
	assert.Equal(t, 0, sel.calls)

	for u, err := range seq {
		require.NoError(t, err)
		if u.Worker == "a" {
			break
		}
	}
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 0, b.calls)
	assert.Equal(t, 1, sel.calls)
}

func TestRunStepBudget(t *testing.T) {
	a := &scriptedWorker{name: "a"}
	picks := make([]string, 10)
	for i := range picks {
		picks[i] = "a"
	}
	reg, err := worker.NewRegistry(a)
	require.NoError(t, err)
	e := New(reg, dispatch.New(&scriptedSelector{picks: picks}, reg), WithMaxSteps(3))

	_, err = collect(t, e, domain.Claim{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStepBudgetExceeded))
	assert.Equal(t, 3, a.calls)
}

func TestRunCancelledContext(t *testing.T) {
	a := &scriptedWorker{name: "a"}
	e := newTestEngine(t, &scriptedSelector{picks: []string{"a"}}, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var got error
	for _, err := range e.Run(ctx, domain.Claim{}) {
		got = err
	}
	assert.ErrorIs(t, got, context.Canceled)
	assert.Equal(t, 0, a.calls)
}

func TestRunSingleUnknownWorkerHasNoSideEffects(t *testing.T) {
	a := &scriptedWorker{name: "a"}
	e := newTestEngine(t, &scriptedSelector{}, a)

	_, err := e.RunSingle(context.Background(), "nope", domain.Claim{"claim_id": "C-1"})
	var unknown *domain.UnknownWorkerError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []string{"a"}, unknown.Known)
	assert.Equal(t, 0, a.calls)
}

func TestRunSingleReturnsInitialTurnAndWorkerTurns(t *testing.T) {
	a := &scriptedWorker{name: "a", perCall: 3}
	e := newTestEngine(t, &scriptedSelector{}, a)

	trace, err := e.RunSingle(context.Background(), "a", domain.Claim{"id": "X"})
	require.NoError(t, err)
	require.Len(t, trace, 4)
	assert.True(t, strings.HasPrefix(trace[0].Content, singlePreamble))
	for _, turn := range trace[1:] {
		assert.Equal(t, "a", turn.Worker)
	}
}

type captureWorker struct {
	name string
	seen *[]domain.Turn
}

func (w *captureWorker) Name() string        { return w.name }
func (w *captureWorker) Description() string { return "" }

func (w *captureWorker) Invoke(ctx context.Context, conversation []domain.Turn) ([]domain.Turn, error) {
	*w.seen = append([]domain.Turn(nil), conversation...)
	return []domain.Turn{{Role: domain.RoleWorker, Content: "ok"}}, nil
}
