package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"docsum/internal/domain"
	"docsum/internal/ratelimiter"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	updateProcessingTimeout = 3 * time.Minute
	downloadTimeout         = time.Minute
)

// Summarizer is the part of the pipeline the bot talks to.
type Summarizer interface {
	Summarize(ctx context.Context, src domain.Source) (*domain.Summary, error)
	History(ctx context.Context, limit int) ([]domain.Summary, error)
}

// telegramAPI is the subset of *tgbot.Bot used by the handlers.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *tgbot.SendChatActionParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *tgbot.AnswerCallbackQueryParams) (bool, error)
	GetFile(ctx context.Context, params *tgbot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type Options struct {
	Token          string
	AllowedUsers   []int64
	MaxUploadBytes int64
}

type Bot struct {
	client         *tgbot.Bot
	api            telegramAPI
	svc            Summarizer
	pacer          *ratelimiter.ChatPacer
	httpClient     *http.Client
	allowedUsers   []int64
	maxUploadBytes int64
	returnKeyboard *models.InlineKeyboardMarkup
	menuKeyboard   *models.InlineKeyboardMarkup
	log            *slog.Logger
}

func New(opts Options, svc Summarizer, pacer *ratelimiter.ChatPacer, log *slog.Logger) (*Bot, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}

	b := newBot(svc, pacer, opts, log)

	client, err := tgbot.New(token,
		tgbot.WithDefaultHandler(func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
			b.handleUpdate(ctx, update)
		}),
		tgbot.WithErrorsHandler(func(err error) {
			b.log.Error("Telegram polling failed",
				"error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	b.client = client
	b.api = client

	return b, nil
}

func newBot(svc Summarizer, pacer *ratelimiter.ChatPacer, opts Options, log *slog.Logger) *Bot {
	if pacer == nil {
		pacer = ratelimiter.NewChatPacer()
	}

	return &Bot{
		svc:            svc,
		pacer:          pacer,
		httpClient:     &http.Client{Timeout: downloadTimeout},
		allowedUsers:   opts.AllowedUsers,
		maxUploadBytes: opts.MaxUploadBytes,
		returnKeyboard: getReturnKeyboard(),
		menuKeyboard:   getMenuKeyboard(),
		log:            log,
	}
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	b.log.InfoContext(ctx, "Bot is started",
		"allowedUsers", len(b.allowedUsers))

	b.client.Start(ctx)

	b.log.InfoContext(ctx, "Bot context is done",
		"error", ctx.Err())
}

func (b *Bot) handleUpdate(ctx context.Context, update *models.Update) {
	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := update.Message
		if message.From == nil {
			return
		}

		chatID, chatType := chatContext(message.Chat)
		userID := message.From.ID

		if !b.userAllowed(userID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", userID,
				"chatID", chatID,
				"username", message.From.Username,
				"chatType", chatType)

			return
		}

		if err := b.handleMessage(updateCtx, message); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle message",
				"error", err,
				"chatID", chatID,
				"userID", userID,
				"chatType", chatType,
				"messageID", message.ID)
		}

	case update.CallbackQuery != nil:
		callback := update.CallbackQuery
		chatID := callbackChatID(callback)

		if !b.userAllowed(callback.From.ID) {
			b.log.DebugContext(updateCtx, "User is not allowed",
				"userID", callback.From.ID,
				"chatID", chatID,
				"username", callback.From.Username,
				"data", callback.Data)

			return
		}

		if err := b.handleCallbackQuery(updateCtx, callback); err != nil {
			b.log.ErrorContext(updateCtx, "Failed to handle callback query",
				"error", err,
				"chatID", chatID,
				"userID", callback.From.ID,
				"data", callback.Data)
		}
	}
}

// userAllowed treats an empty allow-list as open access.
func (b *Bot) userAllowed(userID int64) bool {
	if len(b.allowedUsers) == 0 {
		return true
	}

	return slices.Contains(b.allowedUsers, userID)
}

func chatContext(chat models.Chat) (int64, string) {
	return chat.ID, string(chat.Type)
}

func callbackChatID(cb *models.CallbackQuery) int64 {
	switch {
	case cb == nil:
		return 0
	case cb.Message.Message != nil:
		return cb.Message.Message.Chat.ID
	case cb.Message.InaccessibleMessage != nil:
		return cb.Message.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
