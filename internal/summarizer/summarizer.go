package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/raffaelramalhorosa/feed-digest/internal/cache"
	"github.com/raffaelramalhorosa/feed-digest/internal/markdown"
	"github.com/raffaelramalhorosa/feed-digest/internal/metrics"
	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// Provider sends one prompt to a language model and returns its raw text.
// Implementations wrap models.ErrUpstreamUnavailable for transport failures
// and models.ErrUnexpectedResponseShape when no text can be found.
type Provider interface {
	Complete(ctx context.Context, prompt models.PromptSpec) (string, error)
}

// Config tunes a Summarizer.
type Config struct {
	SystemPrompt string
	// CacheTTL > 0 keeps the last summary for that long instead of calling
	// the model on every request.
	CacheTTL time.Duration
	Now      func() time.Time
}

// Summarizer turns feed titles into an HTML digest via a Provider.
type Summarizer struct {
	provider     Provider
	systemPrompt string
	now          func() time.Time
	cached       *cache.Slot[cachedSummary]
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New returns a Summarizer using provider.
func New(provider Provider, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Summarizer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Summarizer{
		provider:     provider,
		systemPrompt: cfg.SystemPrompt,
		now:          now,
		logger:       logger,
		metrics:      m,
	}
	if cfg.CacheTTL > 0 {
		s.cached = cache.New[cachedSummary](cfg.CacheTTL, cache.WithClock(now))
		m.RegisterCache("summary", s.cached.Stats)
	}
	return s
}

// cachedSummary remembers which titles a cached result was built from.
type cachedSummary struct {
	titles string
	result models.SummaryResult
}

// Summarize builds the prompt from items, asks the model, and renders the
// answer to HTML. There is no retry; failures are returned as-is.
//
// With caching on, a summary is reused only while the titles it was built
// from still match items.
func (s *Summarizer) Summarize(ctx context.Context, items []models.FeedItem) (models.SummaryResult, error) {
	if s.cached == nil {
		return s.generate(ctx, items)
	}

	titles := strings.Join(models.Titles(items), "\n")
	if prev, ok := s.cached.Peek(); ok && prev.Value.titles != titles {
		s.logger.Debug("feed changed, dropping cached summary")
		s.cached.Invalidate()
	}

	v, err := s.cached.Get(ctx, func(ctx context.Context) (cachedSummary, error) {
		res, err := s.generate(ctx, items)
		return cachedSummary{titles: titles, result: res}, err
	})
	if err != nil {
		return models.SummaryResult{}, err
	}
	return v.result, nil
}

func (s *Summarizer) generate(ctx context.Context, items []models.FeedItem) (models.SummaryResult, error) {
	prompt, err := BuildPrompt(items, s.systemPrompt)
	if err != nil {
		return models.SummaryResult{}, err
	}

	start := time.Now()
	text, err := s.provider.Complete(ctx, prompt)
	s.metrics.ObserveUpstream(metrics.TargetLLM, err)
	if err != nil {
		s.logger.Error("summary generation failed", "titles", len(items), "error", err)
		return models.SummaryResult{}, err
	}
	s.metrics.ObserveSummary(time.Since(start))
	s.logger.Info("summary generated", "titles", len(items), "took", time.Since(start))

	return models.SummaryResult{
		Text:        markdown.ToHTML(text),
		GeneratedAt: s.now(),
	}, nil
}
