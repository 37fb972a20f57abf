package reply

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Ollama generates replies with a local Ollama model (default "redditor").
type Ollama struct {
	llm *ollama.LLM
}

// NewOllama connects to the Ollama server at serverURL (empty uses the library default).
func NewOllama(serverURL, model string) (*Ollama, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &Ollama{llm: llm}, nil
}

// GenerateReply sends text as a single user message.
func (o *Ollama) GenerateReply(ctx context.Context, text string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, text)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out, nil
}
