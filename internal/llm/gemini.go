package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.0-flash"

// GeminiGenerator calls the Gemini API through the Gen AI SDK. Unlike
// the Copilot backend it authenticates with a service-level API key,
// so the per-request credential is ignored.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = geminiDefaultModel
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Name returns the provider name.
func (g *GeminiGenerator) Name() string { return "gemini" }

// Generate runs a single completion.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt, _ string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", &GeneratorError{Provider: g.Name(), Message: err.Error(), Err: err}
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", &GeneratorError{Provider: g.Name(), Message: "empty completion", Err: ErrEmptyCompletion}
	}
	return content, nil
}
