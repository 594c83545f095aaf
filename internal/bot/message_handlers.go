package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"docsum/internal/domain"
	"docsum/internal/loader"
	"docsum/internal/markdown"
	"docsum/internal/pipeline"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"mvdan.cc/xurls/v2"
)

const pdfMimeType = "application/pdf"

var relaxedURLRe = sync.OnceValue(xurls.Relaxed) //nolint:gochecknoglobals // Compiled once.

func (b *Bot) handleMessage(ctx context.Context, message *models.Message) error {
	chatID := message.Chat.ID

	if message.Document != nil {
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleDocument(ctx, chatID, message.Document)
		})
	}

	text := strings.TrimSpace(message.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		return b.handleStartCommand(ctx, chatID)
	case strings.HasPrefix(text, "/help"):
		return b.handleHelpCommand(ctx, chatID)
	case strings.HasPrefix(text, "/menu"):
		return b.handleMenuCommand(ctx, chatID)
	case strings.HasPrefix(text, "/history"):
		return b.withSpinner(ctx, chatID, func() error {
			return b.handleHistoryCommand(ctx, chatID)
		})
	default:
		return b.handleRandomText(ctx, chatID, text)
	}
}

func (b *Bot) handleRandomText(ctx context.Context, chatID int64, text string) error {
	src, ok := sourceFromText(text)
	if !ok {
		return b.sendMessageWithKeyboard(ctx, chatID,
			"✖️ Send me a link or a PDF document to summarize\\.", b.menuKeyboard)
	}

	return b.withSpinner(ctx, chatID, func() error {
		return b.summarizeAndReply(ctx, chatID, src)
	})
}

// sourceFromText picks the first URL in text. YouTube links become video
// sources and anything else a website.
func sourceFromText(text string) (domain.Source, bool) {
	raw := relaxedURLRe().FindString(text)
	if raw == "" {
		return domain.Source{}, false
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	if _, err := loader.ValidateYouTubeURL(raw); err == nil {
		return domain.Source{Kind: domain.SourceYouTube, URL: raw}, true
	}

	return domain.Source{Kind: domain.SourceWebsite, URL: raw}, true
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, doc *models.Document) error {
	if !isPDFDocument(doc) {
		return b.sendMessageWithKeyboard(ctx, chatID,
			"✖️ Only PDF documents are supported\\.", b.returnKeyboard)
	}

	if b.maxUploadBytes > 0 && doc.FileSize > b.maxUploadBytes {
		text := fmt.Sprintf("❌ %s\n\n💡 %s",
			markdown.EscapeV2("PDF document is too large"),
			markdown.EscapeV2(fmt.Sprintf("Maximum size is %d MB", b.maxUploadBytes>>20))) //nolint:mnd // Bytes to MB.

		return b.sendMessageWithKeyboard(ctx, chatID, text, b.returnKeyboard)
	}

	data, err := b.downloadDocument(ctx, doc)
	if err != nil {
		errs := []error{fmt.Errorf("download document: %w", err)}

		sendErr := b.sendMessageWithKeyboard(ctx, chatID, "❌ Failed to download the document\\.", b.returnKeyboard)
		if sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	return b.summarizeAndReply(ctx, chatID, domain.Source{
		Kind:     domain.SourcePDF,
		FileName: doc.FileName,
		Data:     data,
	})
}

func isPDFDocument(doc *models.Document) bool {
	return strings.EqualFold(doc.MimeType, pdfMimeType) ||
		strings.HasSuffix(strings.ToLower(doc.FileName), ".pdf")
}

func (b *Bot) downloadDocument(ctx context.Context, doc *models.Document) ([]byte, error) {
	file, err := b.api.GetFile(ctx, &tgbot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.api.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.log.ErrorContext(ctx, "Failed to close response body",
				"error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if b.maxUploadBytes > 0 {
		// One byte past the limit lets validation report the oversize.
		body = io.LimitReader(resp.Body, b.maxUploadBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

func (b *Bot) summarizeAndReply(ctx context.Context, chatID int64, src domain.Source) error {
	summary, err := b.svc.Summarize(ctx, src)
	if err != nil {
		message, hint := pipeline.Failure(err)

		var errs []error
		var pe *pipeline.Error
		if !errors.As(err, &pe) || pe.Stage != pipeline.StageValidate {
			errs = append(errs, fmt.Errorf("summarize: %w", err))
		}

		if sendErr := b.sendMessageWithKeyboard(ctx, chatID, formatFailure(message, hint), b.returnKeyboard); sendErr != nil {
			errs = append(errs, fmt.Errorf("send message with keyboard: %w", sendErr))
		}

		return errors.Join(errs...)
	}

	if err = b.sendMessageWithKeyboard(ctx, chatID, formatSummary(summary), b.returnKeyboard); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}

	return nil
}

func formatSummary(s *domain.Summary) string {
	var message strings.Builder

	fmt.Fprintf(&message, "✨ *%s*\n", markdown.EscapeV2("Summary of "+s.Kind.Label()))
	if s.SourceRef != "" {
		fmt.Fprintf(&message, "%s %s\n", kindIcon(s.Kind), markdown.EscapeV2(s.SourceRef))
	}
	message.WriteString("\n")
	message.WriteString(markdown.EscapeV2(strings.TrimSpace(s.Text)))
	message.WriteString("\n\n")

	stats := fmt.Sprintf("📄 %s: %d · 📊 Summary words: %d · 📝 Source words: %d",
		s.DocumentCountLabel(), s.DocumentCount, s.SummaryWords, s.SourceWords)
	message.WriteString("_" + markdown.EscapeV2(stats) + "_")

	if s.Cached {
		message.WriteString("\n" + markdown.EscapeV2("(from recent history)"))
	}

	return message.String()
}

func formatFailure(message, hint string) string {
	text := "❌ " + markdown.EscapeV2(message)
	if hint != "" {
		text += "\n\n💡 " + markdown.EscapeV2(hint)
	}

	return text
}

func kindIcon(kind domain.SourceKind) string {
	switch kind {
	case domain.SourceYouTube:
		return "🎥"
	case domain.SourceWebsite:
		return "🌐"
	case domain.SourcePDF:
		return "📄"
	default:
		return "•"
	}
}
