package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/worker"
)

const supervisorPrompt = `You are a senior claims manager supervising a team of insurance claim specialists.
You coordinate their analysis and give an advisory recommendation to a human decision-maker.

Your team:
%s

Process each claim by:
1. Assigning the claim_assessor to evaluate damage and documentation.
2. Assigning the policy_checker to verify coverage.
3. Assigning the risk_analyst to evaluate fraud potential.
4. Assigning the communication_agent whenever a specialist reports missing information.
5. Writing the final assessment once every needed specialist has reported.

Hand work to a specialist by calling its transfer tool. Do not do their work yourself.

When done, reply without calling a tool, in this format:

ASSESSMENT_COMPLETE

PRIMARY RECOMMENDATION: [APPROVED/DENIED/REQUIRES_INVESTIGATION] (Confidence: HIGH/MEDIUM/LOW)
- Brief rationale

SUPPORTING FACTORS:
- Evidence supporting the recommendation

RISK FACTORS:
- Concerns, red flags, coverage limits or exclusions

INFORMATION GAPS:
- Missing documentation or data

RECOMMENDED NEXT STEPS:
- Actions for the human reviewer`

// LLMSelector asks the model which worker to hand off to.
type LLMSelector struct {
	client      llm.LLMClient
	model       string
	temperature *float32
}

// NewLLMSelector creates an LLMSelector.
func NewLLMSelector(client llm.LLMClient, model string, temperature *float32) *LLMSelector {
	return &LLMSelector{client: client, model: model, temperature: temperature}
}

// SelectNext implements Selector.
func (s *LLMSelector) SelectNext(ctx context.Context, trace []domain.Turn, workers []worker.Descriptor) (Selection, error) {
	var team strings.Builder
	tools := make([]llm.Tool, 0, len(workers))
	for i, w := range workers {
		fmt.Fprintf(&team, "%d. %s: %s\n", i+1, w.Name, w.Description)
		tools = append(tools, llm.Tool{
			Name:        llm.HandoffPrefix + w.Name,
			Description: fmt.Sprintf("Assign the claim to %s. %s", w.Name, w.Description),
		})
	}

	messages := []llm.ChatMessage{{
		Role:    string(domain.RoleSystem),
		Content: fmt.Sprintf(supervisorPrompt, strings.TrimRight(team.String(), "\n")),
	}}
	messages = append(messages, worker.ChatMessages(trace)...)

	resp, err := s.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Tools:       tools,
		Temperature: s.temperature,
	})
	if err != nil {
		return Selection{}, errors.Wrap(err, "supervisor completion failed")
	}

	reply := resp.Message
	if len(reply.ToolCalls) == 0 {
		return Selection{
			Terminate: true,
			Turns: []domain.Turn{{
				Role:    domain.RoleWorker,
				Content: reply.Content,
				Name:    SupervisorName,
			}},
		}, nil
	}

	// Only the first hand-off is honoured.
	call := reply.ToolCalls[0]
	target := strings.TrimPrefix(call.Name, llm.HandoffPrefix)
	return Selection{
		Worker: target,
		Turns:  handoffTurns(call.ID, call.Name, target, reply.Content),
	}, nil
}
