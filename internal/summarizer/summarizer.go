package summarizer

import (
	"context"
	"errors"

	"docsum/internal/domain"
)

var (
	// ErrNotConfigured is returned when no LLM API key is available.
	ErrNotConfigured = errors.New("LLM API key is not configured")
	// ErrEmptyOutput is returned when the model answers with blank text.
	ErrEmptyOutput = errors.New("model returned an empty summary")
)

// Input describes the payload for a summary request.
type Input struct {
	// Documents are the extracted texts; they are stuffed into one prompt.
	Documents []string
	// SourceURL is optional metadata that helps the model reference the origin.
	SourceURL string
	Kind      domain.SourceKind
}

type Output struct {
	Text             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Summarizer produces a single summary for a set of documents.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (Output, error)
}
