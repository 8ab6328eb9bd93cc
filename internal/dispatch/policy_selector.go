package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/policy"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

// PolicySelector selects workers with the dispatch policy and writes the
// final assessment itself.
type PolicySelector struct {
	policy *policy.DispatchPolicy
}

// NewPolicySelector creates a PolicySelector.
func NewPolicySelector(p *policy.DispatchPolicy) *PolicySelector {
	return &PolicySelector{policy: p}
}

// SelectNext implements Selector.
func (s *PolicySelector) SelectNext(ctx context.Context, trace []domain.Turn, workers []worker.Descriptor) (Selection, error) {
	reports := lastReports(trace)
	in := policy.DispatchInput{Reports: reports}
	for _, w := range workers {
		in.Workers = append(in.Workers, w.Name)
		if _, ok := reports[w.Name]; ok {
			in.Completed = append(in.Completed, w.Name)
		}
	}

	d, err := s.policy.Decide(ctx, in)
	if err != nil {
		return Selection{}, err
	}

	if d.Action == policy.ActionDispatch {
		callID := fmt.Sprintf("call_dispatch_%d", handoffCount(trace)+1)
		return Selection{
			Worker: d.Worker,
			Turns:  handoffTurns(callID, llm.HandoffPrefix+d.Worker, d.Worker, ""),
		}, nil
	}

	return Selection{
		Terminate: true,
		Turns: []domain.Turn{{
			Role:    domain.RoleWorker,
			Content: renderAssessment(d, in.Workers, reports),
			Name:    SupervisorName,
		}},
	}, nil
}

func handoffCount(trace []domain.Turn) int {
	n := 0
	for _, t := range trace {
		if t.Worker != SupervisorName {
			continue
		}
		for _, tc := range t.ToolCalls {
			if strings.HasPrefix(tc.Name, llm.HandoffPrefix) {
				n++
			}
		}
	}
	return n
}

func renderAssessment(d policy.DispatchDecision, workers []string, reports map[string]string) string {
	var b strings.Builder
	b.WriteString("ASSESSMENT_COMPLETE\n\n")
	fmt.Fprintf(&b, "PRIMARY RECOMMENDATION: %s (Confidence: %s)\n", d.Recommendation, d.Confidence)
	b.WriteString("- Derived from the specialist verdicts below.\n\n")

	b.WriteString("SPECIALIST VERDICTS:\n")
	for _, w := range workers {
		if _, ok := reports[w]; !ok {
			continue
		}
		verdict := d.Verdicts[w]
		if verdict == "" {
			verdict = "no verdict stated"
		}
		fmt.Fprintf(&b, "- %s: %s\n", w, verdict)
	}

	var gaps []string
	for _, w := range workers {
		if _, ok := reports[w]; ok && d.Verdicts[w] == "" {
			gaps = append(gaps, fmt.Sprintf("- %s gave no explicit verdict", w))
		}
	}
	if len(gaps) > 0 {
		b.WriteString("\nINFORMATION GAPS:\n")
		b.WriteString(strings.Join(gaps, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\nRECOMMENDED NEXT STEPS:\n- Review the specialist reports before deciding on the claim.")
	return b.String()
}
