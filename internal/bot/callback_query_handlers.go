package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) error {
	chatID := callbackChatID(callback)
	if chatID == 0 {
		return b.answerCallback(ctx, callback, "")
	}

	var handle func() error

	switch strings.TrimSpace(callback.Data) {
	case callbackMenu:
		handle = func() error { return b.handleMenuCommand(ctx, chatID) }
	case callbackMenuHistory:
		handle = func() error { return b.handleHistoryCommand(ctx, chatID) }
	case callbackMenuHelp:
		handle = func() error { return b.sendMessageWithKeyboard(ctx, chatID, helpText, b.returnKeyboard) }
	default:
		return b.answerCallback(ctx, callback, "Unknown action")
	}

	return b.withEmptyCallbackAnswer(ctx, callback, func() error {
		return b.withSpinner(ctx, chatID, handle)
	})
}

func (b *Bot) withEmptyCallbackAnswer(
	ctx context.Context,
	callback *models.CallbackQuery,
	fn func() error,
) error {
	var errs []error

	if err := fn(); err != nil {
		errs = append(errs, err)
	}

	if err := b.answerCallback(ctx, callback, ""); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (b *Bot) answerCallback(ctx context.Context, callback *models.CallbackQuery, text string) error {
	_, err := b.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
		Text:            text,
	})
	if err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	return nil
}
