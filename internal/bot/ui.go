package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docsum/internal/markdown"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	sendSpinnerInterval      = 3 * time.Second
	telegramMessageMaxLength = 4096
)

func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	_, err := b.api.SendChatAction(ctx, &tgbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil && ctx.Err() == nil {
		b.log.ErrorContext(ctx, "Failed to send chat action",
			"error", err,
			"chatID", chatID)
	}
}

func (b *Bot) withSpinner(ctx context.Context, chatID int64, fn func() error) error {
	spinCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		b.sendTyping(spinCtx, chatID)

		t := time.NewTicker(sendSpinnerInterval)
		defer t.Stop()

		for {
			select {
			case <-spinCtx.Done():
				return
			case <-t.C:
				b.sendTyping(spinCtx, chatID)
			}
		}
	}()

	return fn()
}

// sendMessageWithKeyboard sends MarkdownV2 text, split into as many messages
// as Telegram needs. Only the last part carries the keyboard.
func (b *Bot) sendMessageWithKeyboard(
	ctx context.Context,
	chatID int64,
	text string,
	keyboard *models.InlineKeyboardMarkup,
) error {
	normalizedText := strings.ToValidUTF8(text, "?")
	if normalizedText != text {
		b.log.WarnContext(ctx, "Message text had invalid UTF-8 and was normalized",
			"chatID", chatID,
			"originalLen", len(text),
			"normalizedLen", len(normalizedText))
	}

	parts := markdown.Split(normalizedText, telegramMessageMaxLength)

	var errs []error
	for i, part := range parts {
		if err := b.pacer.Wait(ctx, chatID); err != nil {
			return errors.Join(append(errs, fmt.Errorf("wait for pacer: %w", err))...)
		}

		disablePreview := true
		params := &tgbot.SendMessageParams{
			ChatID: chatID,
			Text:   part,
			// See https://core.telegram.org/bots/api#markdownv2-style.
			ParseMode:          models.ParseModeMarkdown,
			LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disablePreview},
		}
		if keyboard != nil && i == len(parts)-1 {
			params.ReplyMarkup = keyboard
		}

		if _, err := b.api.SendMessage(ctx, params); err != nil {
			errs = append(errs, fmt.Errorf("send message part %d: %w", i+1, err))
		}
	}

	return errors.Join(errs...)
}
