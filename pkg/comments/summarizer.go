package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cvsubs74/dm-consent/pkg/llm"
	"github.com/cvsubs74/dm-consent/pkg/logging"
)

// ErrNoComments is returned when a category has nothing to summarize
var ErrNoComments = errors.New("no comments to summarize")

// SummaryWindow is how many recent comments feed one summary
const SummaryWindow = 50

const summaryPrompt = `You are reviewing user feedback about the %s feature of a privacy data mapping tool.
Summarize the main themes and requests in at most five short bullet points.

Feedback:
%s`

// Summarizer builds category summaries with a language model and stores them
type Summarizer struct {
	store   *Store
	backend llm.Completer
}

// NewSummarizer creates a summarizer; backend may be nil when no model is configured
func NewSummarizer(store *Store, backend llm.Completer) *Summarizer {
	return &Summarizer{store: store, backend: backend}
}

// Summarize reads the latest comments of category, asks the model for a
// summary and stores it.
func (s *Summarizer) Summarize(ctx context.Context, category string) (string, error) {
	if !ValidCategory(category) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if s.backend == nil {
		return "", llm.ErrNotConfigured
	}

	comments, err := s.store.GetComments(ctx, category, SummaryWindow)
	if err != nil {
		return "", err
	}
	if len(comments) == 0 {
		return "", ErrNoComments
	}

	summary, err := s.backend.Complete(ctx, buildSummaryPrompt(category, comments))
	if err != nil {
		return "", fmt.Errorf("failed to summarize %s comments: %w", category, err)
	}
	summary = strings.TrimSpace(summary)

	if err := s.store.UpdateCategorySummary(ctx, category, summary); err != nil {
		return "", err
	}
	logging.InfoContext(ctx, "category summarized", "category", category, "comments", len(comments))
	return summary, nil
}

func buildSummaryPrompt(category string, comments []Comment) string {
	var sb strings.Builder
	for _, c := range comments {
		sb.WriteString("- ")
		sb.WriteString(strings.ReplaceAll(c.Text, "\n", " "))
		sb.WriteByte('\n')
	}
	return fmt.Sprintf(summaryPrompt, category, sb.String())
}
