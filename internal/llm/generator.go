// Package llm provides the idea-generator collaborator: a single
// prompt-in, text-out completion call against a hosted model.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyCompletion is returned when the model replies with no usable
// text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Generator produces idea text from a prompt. One call per dialogue
// turn; the engine treats it as request/response and applies its own
// deadline via ctx.
type Generator interface {
	// Generate returns the completion text for a prompt. The credential
	// is the caller's token for providers that bill per end user; other
	// providers ignore it.
	Generate(ctx context.Context, prompt, credential string) (string, error)

	// Name identifies the backing provider.
	Name() string
}

// GeneratorError wraps a provider failure with its origin.
type GeneratorError struct {
	Provider string
	Message  string
	Err      error
}

func (e *GeneratorError) Error() string {
	return fmt.Sprintf("%s generator: %s", e.Provider, e.Message)
}

func (e *GeneratorError) Unwrap() error {
	return e.Err
}

// Options selects and configures a generator backend.
type Options struct {
	// Provider is "copilot" or "gemini".
	Provider string
	// Model overrides the backend's default model.
	Model string
	// BaseURL overrides the completion endpoint (copilot only).
	BaseURL string
	// APIKey authenticates providers that do not use the per-request
	// credential (gemini only).
	APIKey string
}

// New builds a generator from options.
func New(opts Options) (Generator, error) {
	switch opts.Provider {
	case "", "copilot":
		return NewCopilotGenerator(opts.BaseURL, opts.Model), nil
	case "gemini":
		return NewGeminiGenerator(opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", opts.Provider)
	}
}
