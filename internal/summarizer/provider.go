package summarizer

import (
	"fmt"
	"net/http"
)

// Provider names accepted by NewProvider.
const (
	ProviderWorkersAI = "workers-ai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderConfig selects and configures an LLM backend.
type ProviderConfig struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
}

// NewProvider builds the Provider named by cfg.Name. Missing credentials are
// not an error here; they surface as ErrUpstreamUnavailable on first use.
func NewProvider(cfg ProviderConfig, client *http.Client) (Provider, error) {
	switch cfg.Name {
	case "", ProviderWorkersAI:
		return NewWorkersAI(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q (valid: %s, %s, %s)",
			cfg.Name, ProviderWorkersAI, ProviderOpenAI, ProviderAnthropic)
	}
}
