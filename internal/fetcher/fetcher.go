package fetcher

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html/charset"

	"github.com/raffaelramalhorosa/feed-digest/internal/metrics"
	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// DisplayTimeLayout is the locale-agnostic form pubDate is rendered in.
const DisplayTimeLayout = "2006-01-02 15:04:05 UTC"

// Source describes the single upstream feed.
type Source struct {
	URL   string
	Token string // optional bearer credential
}

// Fetcher downloads the upstream RSS document and normalizes its items.
type Fetcher struct {
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns a Fetcher. A nil client means http.DefaultClient.
func New(client *http.Client, m *metrics.Metrics, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, logger: logger, metrics: m}
}

// Fetch issues one GET against src and returns its items in document order.
// Transport and HTTP failures wrap models.ErrUpstreamUnavailable; bodies that
// are not RSS wrap models.ErrMalformedFeed.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]models.FeedItem, error) {
	items, err := f.fetch(ctx, src)
	if err != nil {
		f.metrics.ObserveUpstream(metrics.TargetFeed, err)
		f.logger.Error("feed fetch failed", "url", src.URL, "error", err)
		return nil, err
	}
	f.metrics.ObserveUpstream(metrics.TargetFeed, nil)
	f.logger.Debug("feed fetched", "url", src.URL, "items", len(items))
	return items, nil
}

func (f *Fetcher) fetch(ctx context.Context, src Source) ([]models.FeedItem, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("%w: feed url not configured", models.ErrUpstreamUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrUpstreamUnavailable, err)
	}
	if src.Token != "" {
		req.Header.Set("Authorization", "Bearer "+src.Token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", models.ErrUpstreamUnavailable, src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: get %s: status %d", models.ErrUpstreamUnavailable, src.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", models.ErrUpstreamUnavailable, src.URL, err)
	}

	return Parse(body)
}

// Parse normalizes an RSS document. A channel with a single <item> yields a
// one-element slice, same as any other count. A root without a <channel>
// is malformed even though it would otherwise parse to zero items.
func Parse(body []byte) ([]models.FeedItem, error) {
	var p rss.Parser
	feed, err := p.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedFeed, err)
	}
	if !hasChannel(body) {
		return nil, fmt.Errorf("%w: no <channel> under the root element", models.ErrMalformedFeed)
	}

	items := make([]models.FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, models.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			PubDate:     displayDate(item),
			Comments:    item.Comments,
		})
	}
	return items, nil
}

// hasChannel reports whether the root element has a direct <channel> child.
func hasChannel(body []byte) bool {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel

	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 1 && t.Name.Local == "channel" {
				return true
			}
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return false
			}
		}
	}
}

func displayDate(item *rss.Item) string {
	if item.PubDateParsed != nil {
		return item.PubDateParsed.UTC().Format(DisplayTimeLayout)
	}
	if raw := strings.TrimSpace(item.PubDate); raw != "" {
		if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
			return t.UTC().Format(DisplayTimeLayout)
		}
		return raw
	}
	return ""
}
