// Package summary turns an update batch into prose through a text-generation
// backend. The core only depends on the Summarizer interface; the OpenAI
// client is one implementation.
package summary

import (
	"context"

	"ghtracker/internal/github"
	"ghtracker/internal/storage"
)

// Summarizer converts a batch of unseen items into a Markdown summary.
// history carries at most the few most recent summary records as background
// context; implementations are free to ignore it. A failed summarization is
// an explicit error, not an empty string.
type Summarizer interface {
	Summarize(ctx context.Context, batch *github.UpdateBatch, history []storage.Summary) (string, error)
}
