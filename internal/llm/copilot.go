package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	copilotBaseURL      = "https://api.githubcopilot.com"
	copilotDefaultModel = "gpt-4o"
)

// CopilotGenerator calls the Copilot chat-completions API. The API is
// OpenAI-compatible and authenticates with the end user's token, so a
// client is built per call rather than held.
type CopilotGenerator struct {
	baseURL string
	model   string
}

// NewCopilotGenerator creates a Copilot-backed generator. Empty
// arguments select the hosted endpoint and default model.
func NewCopilotGenerator(baseURL, model string) *CopilotGenerator {
	if baseURL == "" {
		baseURL = copilotBaseURL
	}
	if model == "" {
		model = copilotDefaultModel
	}
	return &CopilotGenerator{baseURL: baseURL, model: model}
}

// Name returns the provider name.
func (g *CopilotGenerator) Name() string { return "copilot" }

// Generate runs a single completion with the user's token.
func (g *CopilotGenerator) Generate(ctx context.Context, prompt, credential string) (string, error) {
	cfg := openai.DefaultConfig(credential)
	cfg.BaseURL = g.baseURL
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", &GeneratorError{Provider: g.Name(), Message: apiErr.Message, Err: err}
		}
		return "", &GeneratorError{Provider: g.Name(), Message: err.Error(), Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &GeneratorError{Provider: g.Name(), Message: "no choices in response", Err: ErrEmptyCompletion}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &GeneratorError{Provider: g.Name(), Message: "empty completion", Err: ErrEmptyCompletion}
	}
	return content, nil
}
