// Package capability holds the lookup and analysis functions workers can call.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/policy"
)

// ExecutorFunc runs a capability.
type ExecutorFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Capability is a named function with a JSON-schema parameter description.
type Capability struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Exec        ExecutorFunc
}

// Gate decides whether a call may run.
type Gate interface {
	Check(ctx context.Context, in policy.CapabilityInput) (policy.CapabilityDecision, error)
}

// GateConfig attaches a Gate to a registry.
type GateConfig struct {
	Gate  Gate
	Roots []string
	// Resolve normalises path arguments before the gate sees them.
	Resolve func(string) string
}

// Registry stores capabilities keyed by name.
type Registry struct {
	mu    sync.RWMutex
	caps  map[string]Capability
	order []string
	gate  *GateConfig
	calls atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

// SetGate installs a policy gate.
func (r *Registry) SetGate(g GateConfig) {
	r.mu.Lock()
	r.gate = &g
	r.mu.Unlock()
}

// Register adds a capability.
func (r *Registry) Register(c Capability) error {
	if c.Name == "" {
		return fmt.Errorf("capability name is required")
	}
	if c.Exec == nil {
		return fmt.Errorf("executor is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[c.Name]; exists {
		return fmt.Errorf("executor already registered for %s", c.Name)
	}
	r.caps[c.Name] = c
	r.order = append(r.order, c.Name)
	return nil
}

// Names returns capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns model tool definitions for names.
func (r *Registry) Definitions(names []string) ([]llm.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		c, ok := r.caps[name]
		if !ok {
			return nil, fmt.Errorf("no executor registered for %s", name)
		}
		out = append(out, llm.Tool{Name: c.Name, Description: c.Description, Parameters: c.Parameters})
	}
	return out, nil
}

// Calls returns how many calls reached an executor.
func (r *Registry) Calls() int64 { return r.calls.Load() }

// Execute runs the named capability. Every failure is a *domain.CapabilityError.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	c, ok := r.caps[name]
	gate := r.gate
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.CapabilityError{Capability: name, Err: fmt.Errorf("no executor registered for %s", name)}
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if gate != nil && gate.Gate != nil {
		if err := r.check(ctx, gate, name, args); err != nil {
			return nil, &domain.CapabilityError{Capability: name, Err: err}
		}
	}

	r.calls.Add(1)
	out, err := c.Exec(ctx, args)
	if err != nil {
		return nil, &domain.CapabilityError{Capability: name, Err: err}
	}
	return out, nil
}

func (r *Registry) check(ctx context.Context, g *GateConfig, name string, args json.RawMessage) error {
	var in map[string]any
	if err := json.Unmarshal(args, &in); err != nil {
		return errors.Wrap(err, "invalid arguments")
	}
	if g.Resolve != nil {
		for k, v := range in {
			if s, ok := v.(string); ok && k == "image_path" {
				in[k] = g.Resolve(s)
			}
		}
	}
	d, err := g.Gate.Check(ctx, policy.CapabilityInput{Capability: name, Args: in, Roots: g.Roots})
	if err != nil {
		return err
	}
	if !d.Allow {
		return errors.New(d.Reason)
	}
	return nil
}
