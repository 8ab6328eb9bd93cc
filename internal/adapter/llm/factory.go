package llm

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ModeMock   = "mock"
	ModeOpenAI = "openai"
	ModeAzure  = "azure"
)

// NewLLMClient creates an LLM client for the given mode. Unknown or empty
// modes fall back to the mock client.
func NewLLMClient(mode string, opts Options) LLMClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	switch strings.ToLower(mode) {
	case ModeAzure:
		opts.Azure = true
		log.Info().Str("endpoint", opts.Endpoint).Str("deployment", opts.Model).Msg("using Azure OpenAI client")
		return NewClient(opts)
	case ModeOpenAI:
		log.Info().Str("model", opts.Model).Msg("using OpenAI client")
		return NewClient(opts)
	default:
		log.Info().Msg("LLM_MODE=mock, using mock LLM client")
		return NewMockClient()
	}
}

// DefaultTimeout bounds a single completion call when none is configured.
const DefaultTimeout = 120 * time.Second
