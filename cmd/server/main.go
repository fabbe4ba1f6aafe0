package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raffaelramalhorosa/feed-digest/internal/api"
	"github.com/raffaelramalhorosa/feed-digest/internal/cache"
	"github.com/raffaelramalhorosa/feed-digest/internal/config"
	"github.com/raffaelramalhorosa/feed-digest/internal/fetcher"
	"github.com/raffaelramalhorosa/feed-digest/internal/metrics"
	"github.com/raffaelramalhorosa/feed-digest/internal/models"
	"github.com/raffaelramalhorosa/feed-digest/internal/summarizer"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	// --- Dependencies ---
	m := metrics.New()
	client := &http.Client{Timeout: cfg.UpstreamTimeout}

	fetch := fetcher.New(client, m, logger)
	src := fetcher.Source{URL: cfg.FeedURL, Token: cfg.FeedToken}
	feed := cache.NewFeedCache(func(ctx context.Context) ([]models.FeedItem, error) {
		return fetch.Fetch(ctx, src)
	}, cfg.CacheTTL, logger)
	m.RegisterCache("feed", feed.Stats)

	provider, err := summarizer.NewProvider(cfg.Provider(), client)
	if err != nil {
		logger.Error("llm provider", "error", err)
		os.Exit(1)
	}
	sum := summarizer.New(provider, summarizer.Config{
		SystemPrompt: cfg.SystemPrompt,
		CacheTTL:     cfg.SummaryCacheTTL(),
	}, m, logger)

	srv := api.New(feed, sum, api.Options{AllowOrigin: cfg.AllowOrigin, Metrics: m}, logger)

	// --- HTTP server ---
	// Summaries wait on the LLM, so writes get more room than reads.
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server started",
			"port", cfg.Port,
			"feed", cfg.FeedURL,
			"provider", cfg.LLMProvider,
			"cache_ttl", cfg.CacheTTL,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func init() {
	fmt.Println(`
  _____              _   ____  _                 _
 |  ___|__  ___  __| | |  _ \(_) __ _  ___  ___| |_
 | |_ / _ \/ _ \/ _' | | | | | |/ _' |/ _ \/ __| __|
 |  _|  __/  __/ (_| | | |_| | | (_| |  __/\__ \ |_
 |_|  \___|\___|\__,_| |____/|_|\__, |\___||___/\__|
                                |___/
	`)
}
