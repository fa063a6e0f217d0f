package ai

import "context"

// DefaultTemperature keeps classification output close to deterministic.
const DefaultTemperature = 0.2

// Oracle is an opaque text-completion model. It receives a fixed system
// prompt and one user prompt and returns the raw model text.
type Oracle interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Complete calls f.
func (f OracleFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
