package llm

import "context"

// Message is a single chat turn in provider-neutral form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams carries optional sampling parameters. Nil fields mean
// "use the backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	// Generate completes a single prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	// Chat completes a multi-turn conversation.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}
