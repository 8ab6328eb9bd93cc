package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Claim is the opaque payload under review. Only a few identifier fields are
// ever read by the system itself.
type Claim map[string]any

// String returns the value stored under key when it is a non-empty string.
func (c Claim) String(key string) string {
	if c == nil {
		return ""
	}
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// ID returns the claim identifier, if any.
func (c Claim) ID() string {
	return c.String("claim_id")
}

// ToolCall is a structured capability invocation requested by a worker.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"args"`
}

// Turn is one message in a conversation.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Worker     string     `json:"worker,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Text renders the turn the way it is shown in a trace: tool invocations are
// rendered as a TOOL_CALL line, everything else as trimmed content.
func (t Turn) Text() string {
	if len(t.ToolCalls) > 0 {
		calls := make([]string, 0, len(t.ToolCalls))
		for _, tc := range t.ToolCalls {
			args := string(tc.Arguments)
			if args == "" {
				args = "{}"
			}
			calls = append(calls, fmt.Sprintf(`{"name": %q, "args": %s, "id": %q}`, tc.Name, args, tc.ID))
		}
		return "TOOL_CALL: [" + strings.Join(calls, ", ") + "]"
	}
	return strings.TrimSpace(t.Content)
}

// WorkerUpdate is the cumulative list of turns one worker has produced so far
// in a run. Successive updates for the same worker are prefix-stable.
type WorkerUpdate struct {
	Worker     string `json:"worker_name"`
	TurnsSoFar []Turn `json:"turns_so_far"`
}

// TraceEntry is the wire form of a merged turn.
type TraceEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Worker  string `json:"worker_name,omitempty"`
}

// NewTraceEntries converts turns to trace entries. When withWorker is false the
// worker attribution is dropped, as in single-worker responses.
func NewTraceEntries(turns []Turn, withWorker bool) []TraceEntry {
	entries := make([]TraceEntry, 0, len(turns))
	for _, t := range turns {
		e := TraceEntry{Role: t.Role, Content: t.Text()}
		if withWorker {
			e.Worker = t.Worker
		}
		entries = append(entries, e)
	}
	return entries
}
