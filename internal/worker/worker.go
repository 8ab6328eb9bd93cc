// Package worker defines specialist workers and the registry that holds them.
package worker

import (
	"context"
	"encoding/json"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

// Worker is a named specialist. Invoke receives the whole conversation so far
// and returns only the turns it produced in this invocation.
type Worker interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, conversation []domain.Turn) ([]domain.Turn, error)
}

// Descriptor is what the dispatcher sees of a worker.
type Descriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tools       []string `json:"tools,omitempty"`
}

// Toolbox exposes capabilities to workers.
type Toolbox interface {
	Definitions(names []string) ([]llm.Tool, error)
	Execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error)
}
