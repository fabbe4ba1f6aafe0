package summarizer

import (
	"strings"

	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

// DefaultSystemPrompt asks for the markdown shape the renderer understands.
const DefaultSystemPrompt = `You are a helpful assistant that summarizes Hacker News headlines.
Group the headlines you are given into 2-3 thematic categories, with 2-3 representative headlines in each.

Format your answer as markdown, exactly like this:
# Category name
- Headline
- Headline

Use one "# " header per category and "- " bullets beneath it. Do not add any other text.`

// BuildPrompt joins the item titles, in feed order, into the user turn.
func BuildPrompt(items []models.FeedItem, systemPrompt string) (models.PromptSpec, error) {
	if len(items) == 0 {
		return models.PromptSpec{}, models.ErrEmptyInput
	}
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return models.PromptSpec{
		SystemInstruction: systemPrompt,
		UserContent:       strings.Join(models.Titles(items), "\n"),
	}, nil
}
