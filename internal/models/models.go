package models

import "time"

// FeedItem is a single normalized entry from the upstream feed.
type FeedItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	PubDate     string `json:"pubDate"`
	Comments    string `json:"comments"`
}

// SummaryResult is the rendered thematic digest of a set of feed items.
type SummaryResult struct {
	Text        string
	GeneratedAt time.Time
}

// PromptSpec is the two-turn prompt sent to the language model.
type PromptSpec struct {
	SystemInstruction string
	UserContent       string
}

// Titles returns the item titles in feed order.
func Titles(items []FeedItem) []string {
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	return titles
}
