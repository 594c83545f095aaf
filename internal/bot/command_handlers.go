package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docsum/internal/markdown"
	"docsum/internal/pipeline"
)

const historyCommandLimit = 10

const welcomeText = `🤖 *Welcome to AI Content Summarizer\!*

I turn long content into short summaries\. Send me:

– a YouTube video link
– a website or article link
– a PDF document

Use /history to see recent summaries and /help for details\.`

const helpText = `❔ *How to use*

– Send a message with a link\. The first link is summarized\. YouTube links are read from the video transcript, other links from the page text\.
– Send a PDF file as a document\. Every page is read\.
– /history shows the latest summaries\.

Summaries of the same source are reused for a while, so repeated requests are fast\.`

func (b *Bot) handleStartCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, welcomeText, b.menuKeyboard)
}

func (b *Bot) handleHelpCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, helpText, b.returnKeyboard)
}

func (b *Bot) handleMenuCommand(ctx context.Context, chatID int64) error {
	return b.sendMessageWithKeyboard(ctx, chatID, "❔ *Choose an option:*", b.menuKeyboard)
}

func (b *Bot) handleHistoryCommand(ctx context.Context, chatID int64) error {
	summaries, err := b.svc.History(ctx, historyCommandLimit)

	if len(summaries) == 0 {
		var errs []error
		if err != nil && !errors.Is(err, pipeline.ErrHistoryDisabled) {
			errs = append(errs, fmt.Errorf("list history: %w", err))
		}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "✖️ History is empty or disabled\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	var message strings.Builder
	fmt.Fprintf(&message, "🕘 *Last %d summaries:*\n\n", len(summaries))

	for i, s := range summaries {
		fmt.Fprintf(&message, "%d\\. %s %s\n    %s\n",
			i+1,
			kindIcon(s.Kind),
			markdown.EscapeV2(s.SourceRef),
			markdown.EscapeV2(fmt.Sprintf("%d words, %s", s.SummaryWords, s.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))),
		)
	}

	if err = b.sendMessageWithKeyboard(ctx, chatID, message.String(), b.returnKeyboard); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}
