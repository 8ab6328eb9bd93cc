package policy

import (
	"context"
	_ "embed"
)

//go:embed rego/dispatch.rego
var dispatchModule string

//go:embed rego/capability.rego
var capabilityModule string

// DispatchInput describes the run so far.
type DispatchInput struct {
	// Workers are the registered worker names.
	Workers []string `json:"workers"`
	// Completed are workers that already delivered a final report.
	Completed []string `json:"completed"`
	// Reports maps worker name to its latest final report.
	Reports map[string]string `json:"reports"`
}

// DispatchDecision is the outcome of the dispatch policy.
type DispatchDecision struct {
	Action         string            `json:"action"`
	Worker         string            `json:"worker,omitempty"`
	Recommendation string            `json:"recommendation,omitempty"`
	Confidence     string            `json:"confidence,omitempty"`
	Verdicts       map[string]string `json:"verdicts,omitempty"`
}

const (
	ActionDispatch  = "dispatch"
	ActionTerminate = "terminate"
)

// DispatchPolicy selects the next worker deterministically.
type DispatchPolicy struct {
	engine *Engine
}

// NewDispatchPolicy prepares the built-in dispatch policy.
func NewDispatchPolicy(ctx context.Context) (*DispatchPolicy, error) {
	e, err := NewEngine(ctx, "data.claims.dispatch.decision", "dispatch.rego", dispatchModule)
	if err != nil {
		return nil, err
	}
	return &DispatchPolicy{engine: e}, nil
}

// Decide evaluates the dispatch policy.
func (p *DispatchPolicy) Decide(ctx context.Context, in DispatchInput) (DispatchDecision, error) {
	if in.Completed == nil {
		in.Completed = []string{}
	}
	if in.Reports == nil {
		in.Reports = map[string]string{}
	}
	var d DispatchDecision
	ok, err := p.engine.Evaluate(ctx, in, &d)
	if err != nil {
		return DispatchDecision{}, err
	}
	if !ok {
		return DispatchDecision{Action: ActionTerminate, Recommendation: "REQUIRES_INVESTIGATION", Confidence: "LOW"}, nil
	}
	return d, nil
}

// CapabilityInput describes one capability call.
type CapabilityInput struct {
	Capability string         `json:"capability"`
	Args       map[string]any `json:"args"`
	Roots      []string       `json:"roots"`
}

// CapabilityDecision is the outcome of the capability gate.
type CapabilityDecision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// CapabilityPolicy gates capability calls.
type CapabilityPolicy struct {
	engine *Engine
}

// NewCapabilityPolicy prepares the built-in capability policy.
func NewCapabilityPolicy(ctx context.Context) (*CapabilityPolicy, error) {
	e, err := NewEngine(ctx, "data.claims.capability.decision", "capability.rego", capabilityModule)
	if err != nil {
		return nil, err
	}
	return &CapabilityPolicy{engine: e}, nil
}

// Check evaluates the gate. Calls are allowed when the policy is silent.
func (p *CapabilityPolicy) Check(ctx context.Context, in CapabilityInput) (CapabilityDecision, error) {
	if in.Roots == nil {
		in.Roots = []string{}
	}
	d := CapabilityDecision{Allow: true}
	if _, err := p.engine.Evaluate(ctx, in, &d); err != nil {
		return CapabilityDecision{}, err
	}
	return d, nil
}
