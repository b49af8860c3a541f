package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var headingRegex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// GeneratedArticle is a single Markdown article produced for a task.
type GeneratedArticle struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// NewGeneratedArticle builds an article from generated Markdown.
// index is zero-based and only used for the fallback title.
func NewGeneratedArticle(index int, content string) GeneratedArticle {
	title := ExtractTitle(content)
	if title == "" {
		title = PlaceholderTitle(index)
	}
	return GeneratedArticle{
		Title:     title,
		Content:   content,
		WordCount: CountWords(content),
	}
}

// NewPartialArticle builds the in-flight view of an article while it streams.
func NewPartialArticle(index int, partial string) GeneratedArticle {
	return GeneratedArticle{
		Title:     PlaceholderTitle(index),
		Content:   partial,
		WordCount: CountWords(partial),
	}
}

// NewFailedArticle records a per-item failure as a regular article so the
// batch keeps its shape.
func NewFailedArticle(index int, cause error) GeneratedArticle {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return GeneratedArticle{
		Title: fmt.Sprintf("%s (generation failed)", PlaceholderTitle(index)),
		Content: fmt.Sprintf(
			"# Generation failed\n\nAn error occurred while generating this article: %s\n\nPlease check the network connection and the API configuration.",
			msg,
		),
		WordCount: 0,
	}
}

// PlaceholderTitle is the title used when the content carries no heading.
func PlaceholderTitle(index int) string {
	return fmt.Sprintf("Article %d", index+1)
}

// ExtractTitle returns the text of the first level-1 Markdown heading, or "".
func ExtractTitle(content string) string {
	m := headingRegex.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// CountWords counts the characters left after dropping Markdown heading,
// emphasis and list markers and all whitespace. It is a character count,
// which is what CJK copywriting tools report as "words".
func CountWords(content string) int {
	n := 0
	for _, r := range content {
		if r == '#' || r == '*' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		n++
	}
	return n
}
