package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tmc/langchaingo/prompts"
)

const (
	documentSeparator = "\n\n"

	finishReasonLength = "length"

	promptTemplate = `Provide a comprehensive and well-structured summary of the following content in approximately {{.words}} words:

Content: {{.text}}

Focus on:
- Main points and key insights
- Important details and context
- Clear, organized structure
- Actionable information if applicable`
)

type Options struct {
	APIKey               string
	BaseURL              string
	Model                string
	MaxOutputTokens      int64
	MaxOutputTokensLimit int64
	Temperature          float64
	Words                int
}

// OpenAISummarizer calls an OpenAI-compatible Chat Completions API.
type OpenAISummarizer struct {
	client openai.Client
	prompt prompts.PromptTemplate
	opts   Options
}

// NewOpenAISummarizer returns ErrNotConfigured when opts carries no API key.
func NewOpenAISummarizer(opts Options, extra ...option.RequestOption) (*OpenAISummarizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	if opts.MaxOutputTokensLimit < opts.MaxOutputTokens {
		opts.MaxOutputTokensLimit = opts.MaxOutputTokens
	}

	requestOptions := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(opts.BaseURL))
	}
	requestOptions = append(requestOptions, extra...)

	return &OpenAISummarizer{
		client: openai.NewClient(requestOptions...),
		prompt: prompts.NewPromptTemplate(promptTemplate, []string{"text", "words"}),
		opts:   opts,
	}, nil
}

// Summarize stuffs every document into a single prompt. A truncated answer
// is retried with a doubled token budget until the limit is reached.
func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (Output, error) {
	userPrompt, err := s.buildPrompt(input)
	if err != nil {
		return Output{}, err
	}

	maxOutputTokens := s.opts.MaxOutputTokens
	for {
		resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:               openai.ChatModel(s.opts.Model),
			MaxCompletionTokens: openai.Int(maxOutputTokens),
			Temperature:         openai.Float(s.opts.Temperature),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(userPrompt),
			},
		})
		if err != nil {
			return Output{}, fmt.Errorf("do request: %w", err)
		}

		if len(resp.Choices) == 0 {
			return Output{}, errors.New("response has no choices")
		}
		choice := resp.Choices[0]

		if choice.FinishReason == finishReasonLength {
			if maxOutputTokens < s.opts.MaxOutputTokensLimit {
				maxOutputTokens = min(maxOutputTokens*2, s.opts.MaxOutputTokensLimit) //nolint:mnd // Doubling.
				continue
			}

			return Output{}, fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				choice.FinishReason,
				maxOutputTokens,
			)
		}

		text := strings.TrimSpace(choice.Message.Content)
		if text == "" {
			return Output{}, fmt.Errorf("%w (finishReason = %s)", ErrEmptyOutput, choice.FinishReason)
		}

		model := resp.Model
		if model == "" {
			model = s.opts.Model
		}

		return Output{
			Text:             text,
			Model:            model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}, nil
	}
}

func (s *OpenAISummarizer) buildPrompt(input Input) (string, error) {
	docs := make([]string, 0, len(input.Documents))
	for _, d := range input.Documents {
		if d = strings.TrimSpace(d); d != "" {
			docs = append(docs, d)
		}
	}

	if len(docs) == 0 {
		return "", errors.New("input is empty")
	}

	text := strings.Join(docs, documentSeparator)
	if sourceURL := strings.TrimSpace(input.SourceURL); sourceURL != "" {
		label := "Source"
		if input.Kind != "" {
			label = fmt.Sprintf("Source (%s)", input.Kind.Label())
		}
		text = label + ": " + sourceURL + documentSeparator + text
	}

	prompt, err := s.prompt.Format(map[string]any{
		"text":  text,
		"words": s.opts.Words,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}

	return prompt, nil
}
