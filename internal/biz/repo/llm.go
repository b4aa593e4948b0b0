package repo

import "context"

// LanguageModelRepo is the text model interface
type LanguageModelRepo interface {
	// Classify sends a decision prompt and returns the raw model answer
	Classify(ctx context.Context, prompt string) (string, error)

	// Generate returns free text for the prompt
	Generate(ctx context.Context, prompt string) (string, error)
}
