// Package llm wraps the text-completion backend used by the writing assistant.
//
// The Provider interface is deliberately tiny: one system instruction, one
// user prompt, one text answer. There are no retries; a failed call surfaces
// as an error and the caller decides what to tell the client.
package llm

import (
	"context"
	"errors"
)

// Provider produces a completion for a system instruction and a user prompt.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("llm: empty completion")

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Complete implements Provider.
func (f ProviderFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}
