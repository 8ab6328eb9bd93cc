package engine

import "github.com/yassinsws/microsoft-agent-hackathon/internal/domain"

// Merger folds cumulative worker updates into one ordered trace. Each worker
// has a cursor counting the turns already merged; only the suffix past the
// cursor is appended.
type Merger struct {
	cursor map[string]int
	trace  []domain.Turn
}

// NewMerger creates a Merger. initial turns are placed at the start of the trace.
func NewMerger(initial ...domain.Turn) *Merger {
	m := &Merger{cursor: make(map[string]int)}
	m.trace = append(m.trace, initial...)
	return m
}

// Apply merges u and returns the turns it appended.
func (m *Merger) Apply(u domain.WorkerUpdate) []domain.Turn {
	prev := m.cursor[u.Worker]
	if len(u.TurnsSoFar) <= prev {
		return nil
	}
	added := make([]domain.Turn, 0, len(u.TurnsSoFar)-prev)
	for _, t := range u.TurnsSoFar[prev:] {
		t.Worker = u.Worker
		added = append(added, t)
	}
	m.trace = append(m.trace, added...)
	m.cursor[u.Worker] = len(u.TurnsSoFar)
	return added
}

// Trace returns a copy of the merged trace.
func (m *Merger) Trace() []domain.Turn {
	out := make([]domain.Turn, len(m.trace))
	copy(out, m.trace)
	return out
}

// Len returns the number of merged turns.
func (m *Merger) Len() int { return len(m.trace) }
