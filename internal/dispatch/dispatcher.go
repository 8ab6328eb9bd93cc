// Package dispatch decides which worker acts next in a run.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

// SupervisorName attributes the dispatcher's own turns in a trace.
const SupervisorName = "supervisor"

// Selection is the outcome of one dispatch step.
type Selection struct {
	Worker    string
	Terminate bool
	// Turns are the supervisor's own turns for this step.
	Turns []domain.Turn
}

// Selector picks the next worker from the trace so far.
type Selector interface {
	SelectNext(ctx context.Context, trace []domain.Turn, workers []worker.Descriptor) (Selection, error)
}

// Dispatcher validates selections against the registry.
type Dispatcher struct {
	selector Selector
	registry *worker.Registry
}

// New creates a Dispatcher.
func New(selector Selector, registry *worker.Registry) *Dispatcher {
	return &Dispatcher{selector: selector, registry: registry}
}

// Next returns the next selection. A worker outside the registry is an
// InvalidDispatchError.
func (d *Dispatcher) Next(ctx context.Context, trace []domain.Turn) (Selection, error) {
	sel, err := d.selector.SelectNext(ctx, trace, d.registry.Descriptors())
	if err != nil {
		return Selection{}, errors.Wrap(err, "dispatch failed")
	}
	if !sel.Terminate && !d.registry.Has(sel.Worker) {
		return Selection{}, &domain.InvalidDispatchError{Name: sel.Worker}
	}
	for i := range sel.Turns {
		sel.Turns[i].Worker = SupervisorName
	}
	return sel, nil
}

// handoffTurns renders a hand-off as a tool call and its acknowledgement.
func handoffTurns(callID, toolName, target, content string) []domain.Turn {
	return []domain.Turn{
		{
			Role:    domain.RoleWorker,
			Content: content,
			Name:    SupervisorName,
			ToolCalls: []domain.ToolCall{{
				ID:        callID,
				Name:      toolName,
				Arguments: json.RawMessage("{}"),
			}},
		},
		{
			Role:       domain.RoleTool,
			Content:    fmt.Sprintf("Successfully transferred to %s", target),
			Name:       toolName,
			ToolCallID: callID,
		},
	}
}

// lastReports returns each worker's latest plain-text report.
func lastReports(trace []domain.Turn) map[string]string {
	reports := make(map[string]string)
	for _, t := range trace {
		if t.Role != domain.RoleWorker || t.Worker == "" || t.Worker == SupervisorName || len(t.ToolCalls) > 0 {
			continue
		}
		reports[t.Worker] = t.Content
	}
	return reports
}
