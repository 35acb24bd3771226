// Package content holds the practice material: articles whose text carries
// bracketed vocabulary phrases, served to the presentation layer as plain
// sentences for the practice session. A [Store] abstracts persistence;
// [MemStore] ships seeded with the built-in articles and [PostgresStore]
// persists to PostgreSQL.
package content

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Article is one piece of practice material. Content is plain text with
// vocabulary phrases wrapped in square brackets ("I [head out] at eight.");
// paragraphs are separated by blank lines.
type Article struct {
	ID      int64
	Title   string
	Content string
}

// Validate reports whether the article can be stored.
func (a *Article) Validate() error {
	var errs []error
	if a.ID <= 0 {
		errs = append(errs, errors.New("id must be positive"))
	}
	if strings.TrimSpace(a.Title) == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	if strings.TrimSpace(a.Content) == "" {
		errs = append(errs, errors.New("content must not be empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("content: invalid article: %w", errors.Join(errs...))
	}
	return nil
}

var phrasePattern = regexp.MustCompile(`\[(.*?)\]`)

// Phrases returns the bracketed vocabulary phrases in document order.
func (a *Article) Phrases() []string {
	matches := phrasePattern.FindAllStringSubmatch(a.Content, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// PlainText returns the article text with the vocabulary brackets removed,
// suitable for sentence extraction and practice.
func (a *Article) PlainText() string {
	return phrasePattern.ReplaceAllString(a.Content, "$1")
}

// Sentences returns the article's practice sentences: the plain text split
// at sentence-ending punctuation, trimmed, empties dropped.
func (a *Article) Sentences() []string {
	return SplitSentences(a.PlainText())
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]?`)

// SplitSentences splits free text into trimmed sentences at ., ! and ?.
// A trailing fragment without terminal punctuation is kept.
func SplitSentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ErrNotFound is returned by Store lookups for unknown article IDs.
var ErrNotFound = errors.New("content: article not found")

// Store provides CRUD operations for practice articles.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new article. The article is validated first. Returns
	// an error when an article with the same ID already exists.
	Create(ctx context.Context, a *Article) error

	// Get retrieves an article by ID. Returns ErrNotFound for unknown IDs.
	Get(ctx context.Context, id int64) (*Article, error)

	// List returns all articles ordered by ID.
	List(ctx context.Context) ([]Article, error)

	// Upsert creates or replaces an article. The article is validated first.
	Upsert(ctx context.Context, a *Article) error

	// Delete removes an article by ID. Deleting a non-existent article is not
	// an error.
	Delete(ctx context.Context, id int64) error
}
