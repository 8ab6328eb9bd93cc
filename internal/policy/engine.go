// Package policy evaluates the OPA policies used for dispatch and capability
// gating.
package policy

import (
	"context"
	"encoding/json"

	"github.com/open-policy-agent/opa/rego"
	"github.com/pkg/errors"
)

// Engine is a prepared OPA query over one module.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares query against the given module.
func NewEngine(ctx context.Context, query, moduleName, module string) (*Engine, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module(moduleName, module),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to prepare rego %s", moduleName)
	}

	return &Engine{query: prepared}, nil
}

// Evaluate runs the query and decodes its first value into out.
// It returns false when the query produced no value.
func (e *Engine) Evaluate(ctx context.Context, input any, out any) (bool, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, errors.Wrap(err, "failed to evaluate policy")
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	raw, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return false, errors.Wrap(err, "failed to encode policy result")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrap(err, "unexpected policy result")
	}
	return true, nil
}
