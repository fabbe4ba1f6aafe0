package summarizer

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAI calls an OpenAI-compatible chat completions API.
type OpenAI struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAI returns an OpenAI provider. An empty baseURL keeps the library
// default (api.openai.com).
func NewOpenAI(baseURL, model, apiKey string, httpClient *http.Client) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Complete sends the prompt as a system and a user message.
func (o *OpenAI) Complete(ctx context.Context, prompt models.PromptSpec) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key not configured", models.ErrUpstreamUnavailable)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt.UserContent},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", models.ErrUpstreamUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", models.ErrUnexpectedResponseShape)
	}
	return resp.Choices[0].Message.Content, nil
}
