package syndication

import (
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability"
)

// ExcerptExtractor derives plain excerpt text from a post's HTML content,
// used when the post carries no explicit excerpt.
type ExcerptExtractor struct{}

func NewExcerptExtractor() *ExcerptExtractor {
	return &ExcerptExtractor{}
}

func (e *ExcerptExtractor) Run(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", fmt.Errorf("post content is empty")
	}

	article, err := readability.FromReader(strings.NewReader(html), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract excerpt: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no text extracted from post content")
	}

	slog.Debug("Excerpt extracted from post content", "length", len(text))

	return text, nil
}
