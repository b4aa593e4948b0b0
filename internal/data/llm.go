package data

import (
	"context"

	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/infra/llm"
)

// Completer is the subset of the LLM client used by the repository
type Completer interface {
	Complete(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// llmRepo implements the language model repository
type llmRepo struct {
	client Completer
}

// NewLLMRepo creates a language model repository
func NewLLMRepo(client Completer) repo.LanguageModelRepo {
	return &llmRepo{client: client}
}

// Classify asks for a short deterministic answer
func (r *llmRepo) Classify(ctx context.Context, prompt string) (string, error) {
	return r.client.Complete(ctx, prompt, llm.Options{Temperature: 0, MaxTokens: 16})
}

// Generate asks for a short conversational reply
func (r *llmRepo) Generate(ctx context.Context, prompt string) (string, error) {
	return r.client.Complete(ctx, prompt, llm.Options{Temperature: 0.7, MaxTokens: 300})
}
