package api

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/raffaelramalhorosa/feed-digest/internal/metrics"
	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

//go:embed static/index.html
var staticFS embed.FS

// TimestampLayout is the ISO-8601 form used for summary timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FeedSource yields the current (possibly cached) feed items.
type FeedSource interface {
	Items(ctx context.Context) ([]models.FeedItem, error)
}

// SummarySource turns feed items into a rendered summary.
type SummarySource interface {
	Summarize(ctx context.Context, items []models.FeedItem) (models.SummaryResult, error)
}

// Options holds the optional parts of a Server.
type Options struct {
	// AllowOrigin is sent as Access-Control-Allow-Origin; empty omits it.
	AllowOrigin string
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

// Server holds dependencies for the HTTP handlers.
type Server struct {
	feed    FeedSource
	summary SummarySource
	opts    Options
	logger  *slog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

// New wires up routes and returns a ready-to-use Server.
func New(feed FeedSource, summary SummarySource, opts Options, logger *slog.Logger) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	srv := &Server{
		feed:    feed,
		summary: summary,
		opts:    opts,
		logger:  logger,
		mux:     http.NewServeMux(),
	}
	srv.routes()
	srv.handler = srv.instrument(srv.cors(srv.mux))
	return srv
}

// ServeHTTP makes Server satisfy the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ---------- Routes ----------

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("GET /api/rss", s.handleItems)
	s.mux.HandleFunc("GET /api/titles", s.handleTitles)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}

	// Anything else, any method.
	s.mux.HandleFunc("/", s.handleNotFound)
}

// ---------- Handlers ----------

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.logger.Error("landing page missing", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "landing page unavailable"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.feed.Items(r.Context())
	if err != nil {
		s.logger.Error("rss request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if items == nil {
		items = []models.FeedItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	items, err := s.feed.Items(r.Context())
	if err != nil {
		s.logger.Error("titles request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, models.Titles(items))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	items, err := s.feed.Items(r.Context())
	if err != nil {
		s.logger.Error("summary request failed fetching feed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.summary.Summarize(r.Context(), items)
	if err != nil {
		s.logger.Error("summary request failed", "titles", len(items), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:     "Failed to generate summary",
			Details:   err.Error(),
			Timestamp: s.opts.Now().UTC().Format(TimestampLayout),
		})
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:   res.Text,
		Timestamp: res.GeneratedAt.UTC().Format(TimestampLayout),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not Found"))
}

// ---------- Responses ----------

type summaryResponse struct {
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ---------- Helpers ----------

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
