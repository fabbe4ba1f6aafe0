package fetcher_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raffaelramalhorosa/feed-digest/internal/fetcher"
	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

const singleItemFeed = `
      <rss version="2.0">
        <channel>
          <title>Hacker News</title>
          <item>
            <title>Test Title</title>
            <link>http://example.com</link>
            <description>Test Description</description>
            <pubDate>Mon, 01 Jan 2024 00:00:00 GMT</pubDate>
            <comments>https://news.ycombinator.com/item?id=1</comments>
          </item>
        </channel>
      </rss>`

func rssWithTitles(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>HN</title>`)
	for i, title := range titles {
		fmt.Fprintf(&b, "<item><title>%s</title><link>https://example.com/%d</link></item>", title, i)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func newFetcher() *fetcher.Fetcher {
	return fetcher.New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseSingleItem(t *testing.T) {
	items, err := fetcher.Parse([]byte(singleItemFeed))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, models.FeedItem{
		Title:       "Test Title",
		Link:        "http://example.com",
		Description: "Test Description",
		PubDate:     "2024-01-01 00:00:00 UTC",
		Comments:    "https://news.ycombinator.com/item?id=1",
	}, items[0])
}

func TestParsePreservesOrder(t *testing.T) {
	titles := []string{"first", "second", "third", "fourth"}

	items, err := fetcher.Parse([]byte(rssWithTitles(titles...)))
	require.NoError(t, err)
	require.Len(t, items, len(titles))

	assert.Equal(t, titles, models.Titles(items))
}

func TestParseMissingOptionalFields(t *testing.T) {
	items, err := fetcher.Parse([]byte(rssWithTitles("only a title")))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "only a title", items[0].Title)
	assert.Empty(t, items[0].Description)
	assert.Empty(t, items[0].PubDate)
	assert.Empty(t, items[0].Comments)
}

func TestParseEmptyChannel(t *testing.T) {
	items, err := fetcher.Parse([]byte(rssWithTitles()))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"plain text", "this is not xml"},
		{"wrong root", "<html><body>oops</body></html>"},
		{"empty", ""},
		{"no channel", `<rss version="2.0"></rss>`},
		{"unknown child", `<rss version="2.0"><foo/></rss>`},
		{"nested channel", `<rss version="2.0"><foo><channel><item><title>x</title></item></channel></foo></rss>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fetcher.Parse([]byte(tt.body))
			require.ErrorIs(t, err, models.ErrMalformedFeed)
		})
	}
}

func TestParseDeclaredCharset(t *testing.T) {
	body := `<?xml version="1.0" encoding="ISO-8859-1"?>
<rss version="2.0"><channel><title>HN</title>
  <item><title>Show HN: X</title><link>https://x.example</link></item>
</channel></rss>`

	items, err := fetcher.Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Show HN: X", items[0].Title)
}

func TestFetchSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, singleItemFeed)
	}))
	defer srv.Close()

	items, err := newFetcher().Fetch(context.Background(), fetcher.Source{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestFetchWithoutTokenSendsNoAuthorization(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, singleItemFeed)
	}))
	defer srv.Close()

	_, err := newFetcher().Fetch(context.Background(), fetcher.Source{URL: srv.URL})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestFetchHTTPErrorIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newFetcher().Fetch(context.Background(), fetcher.Source{URL: srv.URL})
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestFetchTransportErrorIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newFetcher().Fetch(context.Background(), fetcher.Source{URL: url})
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestFetchMissingURLIsUpstreamUnavailable(t *testing.T) {
	_, err := newFetcher().Fetch(context.Background(), fetcher.Source{})
	require.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<feed>not rss</feed>")
	}))
	defer srv.Close()

	_, err := newFetcher().Fetch(context.Background(), fetcher.Source{URL: srv.URL})
	require.ErrorIs(t, err, models.ErrMalformedFeed)
}
