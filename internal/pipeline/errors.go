package pipeline

import (
	"errors"
	"fmt"

	"docsum/internal/domain"
	"docsum/internal/summarizer"
)

type Stage string

const (
	StageValidate  Stage = "validate"
	StageLoad      Stage = "load"
	StageSummarize Stage = "summarize"
)

var ErrHistoryDisabled = errors.New("history is disabled")

const (
	msgEnterURL       = "Please enter a URL to get started"
	msgInvalidURL     = "Please enter a valid URL"
	msgInvalidYouTube = "Please enter a valid YouTube URL"
	msgUploadPDF      = "Please upload a PDF file to get started"
	msgMissingKey     = "LLM API key not found. Please add GROQ_API_KEY to your .env file"
	msgEmptySummary   = "Failed to generate summary"
)

// Error is a failed summarize request. Message and Hint are safe to show to
// the user.
type Error struct {
	Stage   Stage
	Kind    domain.SourceKind
	Message string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Failure returns the user facing message and hint for err.
func Failure(err error) (string, string) {
	if err == nil {
		return "", ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Message, e.Hint
	}

	return "Error: " + err.Error(), ""
}

func validationError(kind domain.SourceKind, message string, err error) *Error {
	return &Error{Stage: StageValidate, Kind: kind, Message: message, Err: err}
}

func loadError(kind domain.SourceKind, err error) *Error {
	e := &Error{Stage: StageLoad, Kind: kind, Err: err}

	switch kind {
	case domain.SourceYouTube:
		e.Message = "Could not extract content from YouTube video"
		e.Hint = "Try a different video or check if it has captions available"
	case domain.SourcePDF:
		e.Message = "Could not process PDF: " + err.Error()
		e.Hint = "Make sure the PDF is not password protected and contains readable text"
	default:
		e.Message = "Could not extract content from website"
		e.Hint = "Make sure the website is accessible and allows content extraction"
	}

	return e
}

func summarizeError(kind domain.SourceKind, err error) *Error {
	e := &Error{Stage: StageSummarize, Kind: kind, Err: err}

	switch {
	case errors.Is(err, summarizer.ErrNotConfigured):
		e.Message = msgMissingKey
	case errors.Is(err, summarizer.ErrEmptyOutput):
		e.Message = msgEmptySummary
	default:
		e.Message = "Error: " + err.Error()
	}

	return e
}
