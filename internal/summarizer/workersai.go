package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// DefaultWorkersAIModel is appended to the base URL when no model is set.
const DefaultWorkersAIModel = "@cf/meta/llama-3-8b-instruct"

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 1024

// WorkersAI calls a Cloudflare Workers AI style text-generation endpoint.
type WorkersAI struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewWorkersAI returns a WorkersAI provider. A nil client means
// http.DefaultClient.
func NewWorkersAI(baseURL, model, apiKey string, client *http.Client) *WorkersAI {
	if model == "" {
		model = DefaultWorkersAIModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WorkersAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  client,
	}
}

type workersAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type workersAIRequest struct {
	Messages []workersAIMessage `json:"messages"`
}

// Endpoint returns the URL requests are posted to.
func (w *WorkersAI) Endpoint() string {
	return w.baseURL + "/" + strings.TrimLeft(w.model, "/")
}

// Complete posts the prompt and decodes the answer with DecodeResponse.
func (w *WorkersAI) Complete(ctx context.Context, prompt models.PromptSpec) (string, error) {
	if w.baseURL == "" {
		return "", fmt.Errorf("%w: llm base url not configured", models.ErrUpstreamUnavailable)
	}
	if w.apiKey == "" {
		return "", fmt.Errorf("%w: llm api key not configured", models.ErrUpstreamUnavailable)
	}

	body, err := json.Marshal(workersAIRequest{
		Messages: []workersAIMessage{
			{Role: "system", Content: prompt.SystemInstruction},
			{Role: "user", Content: prompt.UserContent},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build llm request: %v", models.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: llm request: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: llm status %d: %s", models.ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read llm response: %v", models.ErrUpstreamUnavailable, err)
	}

	if isPlainText(resp.Header.Get("Content-Type")) {
		return string(raw), nil
	}
	return DecodeResponse(raw)
}

type resultEnvelope struct {
	Result *struct {
		Response *string `json:"response"`
	} `json:"result"`
}

// DecodeResponse extracts the generated text from a response body. The
// accepted shapes are tried in this order:
//
//  1. an envelope {"result": {"response": "<text>"}}
//  2. a bare JSON string "<text>"
//
// Anything else wraps models.ErrUnexpectedResponseShape. Callers should not
// retry on that error: the same request will produce the same shape.
func DecodeResponse(raw []byte) (string, error) {
	var env resultEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Result != nil && env.Result.Response != nil {
		return *env.Result.Response, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	return "", fmt.Errorf("%w: %s", models.ErrUnexpectedResponseShape, snippet(raw))
}

func isPlainText(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/plain"
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
