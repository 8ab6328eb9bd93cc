package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// HandoffPrefix marks supervisor hand-off tools.
const HandoffPrefix = "transfer_to_"

// MockClient is a deterministic LLMClient used in offline mode and tests.
//
// It calls every offered tool once when the tool's required arguments can be
// resolved from the claim JSON in the first user message, then answers with a
// plain-text summary of the tool results. Hand-off tools are called in the
// order they are offered.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ LLMClient = (*MockClient)(nil)

// argAliases lists claim fields that can satisfy a tool parameter.
var argAliases = map[string][]string{
	"claimant_id":   {"claimant_id", "id"},
	"policy_number": {"policy_number"},
	"vin":           {"vin"},
	"query":         {"claim_type", "description"},
	"image_path":    {"supporting_images"},
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg := m.respond(req)
	return &ChatCompletionResponse{
		ID:           fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Model:        req.Model,
		Message:      msg,
		FinishReason: finishReason(msg),
		Usage: &Usage{
			PromptTokens:     estimateTokens(req),
			CompletionTokens: len(msg.Content) / 4,
			TotalTokens:      estimateTokens(req) + len(msg.Content)/4,
		},
	}, nil
}

func finishReason(msg ChatMessage) string {
	if len(msg.ToolCalls) > 0 {
		return "tool_calls"
	}
	return "stop"
}

func (m *MockClient) respond(req *ChatCompletionRequest) ChatMessage {
	if req.JSONResponse {
		return ChatMessage{Role: "assistant", Content: mockImageAnalysis(req)}
	}

	called := calledTools(req.Messages)
	claim := firstClaim(req.Messages)

	var handoffs int
	for _, t := range req.Tools {
		if strings.HasPrefix(t.Name, HandoffPrefix) {
			handoffs++
		}
		if called[t.Name] {
			continue
		}
		args, ok := resolveArgs(t.Parameters, claim)
		if !ok {
			continue
		}
		return ChatMessage{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:        fmt.Sprintf("call_mock_%d", len(called)+1),
				Name:      t.Name,
				Arguments: args,
			}},
		}
	}

	if handoffs > 0 {
		return ChatMessage{Role: "assistant", Content: "ASSESSMENT_COMPLETE\n\n[MOCK] All specialists have reported."}
	}
	return ChatMessage{Role: "assistant", Content: summarizeToolResults(req.Messages)}
}

func calledTools(msgs []ChatMessage) map[string]bool {
	called := make(map[string]bool)
	for _, msg := range msgs {
		for _, tc := range msg.ToolCalls {
			called[tc.Name] = true
		}
	}
	return called
}

// firstClaim parses the JSON object embedded in the first user message.
func firstClaim(msgs []ChatMessage) map[string]any {
	for _, msg := range msgs {
		if msg.Role != "user" {
			continue
		}
		start := strings.Index(msg.Content, "{")
		end := strings.LastIndex(msg.Content, "}")
		if start < 0 || end <= start {
			return nil
		}
		var claim map[string]any
		if err := json.Unmarshal([]byte(msg.Content[start:end+1]), &claim); err != nil {
			return nil
		}
		return claim
	}
	return nil
}

func resolveArgs(schema json.RawMessage, claim map[string]any) (string, bool) {
	if len(schema) == 0 {
		return "{}", true
	}
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &s); err != nil {
		return "", false
	}
	if len(s.Required) == 0 {
		return "{}", true
	}

	args := make(map[string]string, len(s.Required))
	for _, key := range s.Required {
		aliases, ok := argAliases[key]
		if !ok {
			aliases = []string{key}
		}
		var val string
		for _, alias := range aliases {
			if val = lookup(claim, alias); val != "" {
				break
			}
		}
		if val == "" {
			return "", false
		}
		args[key] = val
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// lookup finds key anywhere in a nested claim. Lists yield their first string.
func lookup(v any, key string) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	if raw, ok := obj[key]; ok {
		switch val := raw.(type) {
		case string:
			return val
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	for _, nested := range obj {
		if s := lookup(nested, key); s != "" {
			return s
		}
	}
	return ""
}

func summarizeToolResults(msgs []ChatMessage) string {
	var b strings.Builder
	b.WriteString("[MOCK] Review complete.")
	for _, msg := range msgs {
		if msg.Role != "tool" {
			continue
		}
		b.WriteString("\n\n")
		if msg.Name != "" {
			b.WriteString(msg.Name)
			b.WriteString(": ")
		}
		b.WriteString(msg.Content)
	}
	return b.String()
}

func mockImageAnalysis(req *ChatCompletionRequest) string {
	category := "damage_photo"
	for _, msg := range req.Messages {
		if len(msg.ImageURLs) == 0 {
			continue
		}
		lower := strings.ToLower(msg.Content)
		switch {
		case strings.Contains(lower, "invoice"):
			category = "invoice"
		case strings.Contains(lower, "form"):
			category = "claim_form"
		}
	}
	out, _ := json.Marshal(map[string]any{
		"category":       category,
		"summary":        "[MOCK] Image reviewed offline.",
		"data_extracted": map[string]any{},
	})
	return string(out)
}

// estimateTokens provides a rough token count estimate.
func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
