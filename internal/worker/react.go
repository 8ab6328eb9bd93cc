package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/adapter/llm"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

// DefaultMaxToolIterations bounds the tool loop of a single invocation.
const DefaultMaxToolIterations = 8

// ReactWorker answers by alternating model calls and capability calls until
// the model replies without requesting a tool.
type ReactWorker struct {
	name          string
	description   string
	prompt        string
	tools         []string
	client        llm.LLMClient
	toolbox       Toolbox
	model         string
	temperature   *float32
	maxIterations int
}

// ReactConfig configures a ReactWorker.
type ReactConfig struct {
	Name          string
	Description   string
	Prompt        string
	Tools         []string
	Client        llm.LLMClient
	Toolbox       Toolbox
	Model         string
	Temperature   *float32
	MaxIterations int
}

// NewReactWorker creates a ReactWorker.
func NewReactWorker(cfg ReactConfig) (*ReactWorker, error) {
	if cfg.Name == "" {
		return nil, errors.New("worker name is required")
	}
	if cfg.Client == nil {
		return nil, errors.Errorf("worker %s: llm client is required", cfg.Name)
	}
	if len(cfg.Tools) > 0 && cfg.Toolbox == nil {
		return nil, errors.Errorf("worker %s: toolbox is required for tools %v", cfg.Name, cfg.Tools)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxToolIterations
	}
	return &ReactWorker{
		name:          cfg.Name,
		description:   cfg.Description,
		prompt:        cfg.Prompt,
		tools:         cfg.Tools,
		client:        cfg.Client,
		toolbox:       cfg.Toolbox,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxIterations: cfg.MaxIterations,
	}, nil
}

func (w *ReactWorker) Name() string        { return w.name }
func (w *ReactWorker) Description() string { return w.description }

// ToolNames returns the capability names offered to the model.
func (w *ReactWorker) ToolNames() []string {
	out := make([]string, len(w.tools))
	copy(out, w.tools)
	return out
}

// Invoke runs the tool loop over the conversation and returns the new turns.
func (w *ReactWorker) Invoke(ctx context.Context, conversation []domain.Turn) ([]domain.Turn, error) {
	var defs []llm.Tool
	if len(w.tools) > 0 {
		var err error
		defs, err = w.toolbox.Definitions(w.tools)
		if err != nil {
			return nil, errors.Wrapf(err, "worker %s", w.name)
		}
	}

	messages := make([]llm.ChatMessage, 0, len(conversation)+1)
	if w.prompt != "" {
		messages = append(messages, llm.ChatMessage{Role: string(domain.RoleSystem), Content: w.prompt})
	}
	messages = append(messages, ChatMessages(conversation)...)

	var produced []domain.Turn
	for i := 0; ; i++ {
		req := &llm.ChatCompletionRequest{
			Model:       w.model,
			Messages:    messages,
			Temperature: w.temperature,
		}
		// Past the budget the model must answer in text.
		if i < w.maxIterations {
			req.Tools = defs
		}

		resp, err := w.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, errors.Wrapf(err, "worker %s", w.name)
		}

		reply := resp.Message
		if len(reply.ToolCalls) == 0 || i >= w.maxIterations {
			produced = append(produced, domain.Turn{
				Role:    domain.RoleWorker,
				Content: reply.Content,
				Worker:  w.name,
				Name:    w.name,
			})
			return produced, nil
		}

		call := domain.Turn{Role: domain.RoleWorker, Content: reply.Content, Worker: w.name, Name: w.name}
		for _, tc := range reply.ToolCalls {
			call.ToolCalls = append(call.ToolCalls, domain.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: rawArgs(tc.Arguments),
			})
		}
		produced = append(produced, call)
		messages = append(messages, llm.ChatMessage{
			Role:      string(domain.RoleWorker),
			Content:   reply.Content,
			Name:      w.name,
			ToolCalls: reply.ToolCalls,
		})

		for _, tc := range reply.ToolCalls {
			result := w.execute(ctx, tc)
			produced = append(produced, domain.Turn{
				Role:       domain.RoleTool,
				Content:    result,
				Worker:     w.name,
				Name:       tc.Name,
				ToolCallID: tc.ID,
			})
			messages = append(messages, llm.ChatMessage{
				Role:       string(domain.RoleTool),
				Content:    result,
				Name:       tc.Name,
				ToolCallID: tc.ID,
			})
		}
	}
}

// execute runs one capability call. Failures are reported to the model as an
// error object instead of aborting the worker.
func (w *ReactWorker) execute(ctx context.Context, tc llm.ToolCall) string {
	if !w.offers(tc.Name) {
		return errorResult(fmt.Sprintf("tool %s is not available to %s", tc.Name, w.name))
	}
	out, err := w.toolbox.Execute(ctx, tc.Name, rawArgs(tc.Arguments))
	if err != nil {
		var capErr *domain.CapabilityError
		if errors.As(err, &capErr) {
			log.Warn().Err(capErr.Err).Str("worker", w.name).Str("tool", tc.Name).Msg("capability call failed")
			return errorResult(capErr.Err.Error())
		}
		log.Warn().Err(err).Str("worker", w.name).Str("tool", tc.Name).Msg("capability call failed")
		return errorResult(err.Error())
	}
	return string(out)
}

func (w *ReactWorker) offers(name string) bool {
	for _, t := range w.tools {
		if t == name {
			return true
		}
	}
	return false
}

func errorResult(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

func rawArgs(args string) json.RawMessage {
	if args == "" || !json.Valid([]byte(args)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}

// ChatMessages converts conversation turns to model messages.
func ChatMessages(turns []domain.Turn) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(turns))
	for _, t := range turns {
		msg := llm.ChatMessage{
			Role:       string(t.Role),
			Content:    t.Content,
			Name:       t.Name,
			ToolCallID: t.ToolCallID,
		}
		if t.Role == domain.RoleWorker && msg.Name == "" {
			msg.Name = t.Worker
		}
		for _, tc := range t.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: string(tc.Arguments),
			})
		}
		out = append(out, msg)
	}
	return out
}
