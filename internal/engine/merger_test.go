package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

func turns(texts ...string) []domain.Turn {
	out := make([]domain.Turn, 0, len(texts))
	for _, t := range texts {
		out = append(out, domain.Turn{Role: domain.RoleWorker, Content: t})
	}
	return out
}

func TestMergerLengthIsSumOfFinalLists(t *testing.T) {
	m := NewMerger()
	a := turns("a1", "a2", "a3")
	b := turns("b1", "b2")

	m.Apply(domain.WorkerUpdate{Worker: "a", TurnsSoFar: a[:1]})
	m.Apply(domain.WorkerUpdate{Worker: "b", TurnsSoFar: b[:1]})
	m.Apply(domain.WorkerUpdate{Worker: "a", TurnsSoFar: a})
	m.Apply(domain.WorkerUpdate{Worker: "b", TurnsSoFar: b})

	trace := m.Trace()
	require.Len(t, trace, len(a)+len(b))

	var got []string
	for _, turn := range trace {
		got = append(got, turn.Content)
	}
	assert.Equal(t, []string{"a1", "b1", "a2", "a3", "b2"}, got)
}

func TestMergerRepeatedUpdateIsNoop(t *testing.T) {
	m := NewMerger()
	u := domain.WorkerUpdate{Worker: "a", TurnsSoFar: turns("x", "y")}

	added := m.Apply(u)
	require.Len(t, added, 2)

	again := m.Apply(u)
	assert.Empty(t, again)
	assert.Equal(t, 2, m.Len())
}

func TestMergerShorterUpdateIsNoop(t *testing.T) {
	m := NewMerger()
	m.Apply(domain.WorkerUpdate{Worker: "a", TurnsSoFar: turns("x", "y", "z")})

	added := m.Apply(domain.WorkerUpdate{Worker: "a", TurnsSoFar: turns("x")})
	assert.Nil(t, added)
	assert.Equal(t, 3, m.Len())
}

func TestMergerStampsWorkerAndKeepsInitialTurns(t *testing.T) {
	initial := domain.Turn{Role: domain.RoleHuman, Content: "claim"}
	m := NewMerger(initial)
	m.Apply(domain.WorkerUpdate{Worker: "risk_analyst", TurnsSoFar: turns("report")})

	trace := m.Trace()
	require.Len(t, trace, 2)
	assert.Equal(t, "", trace[0].Worker)
	assert.Equal(t, "risk_analyst", trace[1].Worker)
}

func TestMergerTraceIsACopy(t *testing.T) {
	m := NewMerger()
	m.Apply(domain.WorkerUpdate{Worker: "a", TurnsSoFar: turns("x")})

	trace := m.Trace()
	trace[0].Content = "mutated"
	assert.Equal(t, "x", m.Trace()[0].Content)
}
