package summarizer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = anthropic.ModelClaudeHaiku4_5

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	apiKey string
	model  anthropic.Model
	client *anthropic.Client
}

// NewAnthropic returns an Anthropic provider. An empty baseURL keeps the
// SDK default.
func NewAnthropic(baseURL, model, apiKey string, httpClient *http.Client) *Anthropic {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultAnthropicModel
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{apiKey: apiKey, model: m, client: &client}
}

// Complete sends the prompt with the instruction as the system block.
func (a *Anthropic) Complete(ctx context.Context, prompt models.PromptSpec) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("%w: anthropic api key not configured", models.ErrUpstreamUnavailable)
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: prompt.SystemInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.UserContent)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %v", models.ErrUpstreamUnavailable, err)
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", fmt.Errorf("%w: anthropic returned no text content", models.ErrUnexpectedResponseShape)
	}
	return resp.Content[0].Text, nil
}
