package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"docsum/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/tmc/langchaingo/schema"
)

const (
	webBodyLimit  = 20 << 20
	feedMaxItems  = 20
	noiseSelector = "script, style, noscript, nav, footer, header, aside, form, iframe, svg"
)

//nolint:gochecknoglobals // Immutable lookup table.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "hr": true, "li": true,
	"main": true, "ol": true, "p": true, "pre": true, "section": true,
	"summary": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

var contentSelectors = []string{"article", "main", "[role=main]", "#content", ".content"} //nolint:gochecknoglobals // Ordered by preference.

type Web struct {
	httpClient *http.Client
	pdf        *PDF
	feedParser *gofeed.Parser
	log        *slog.Logger
}

func NewWeb(httpClient *http.Client, pdf *PDF, log *slog.Logger) *Web {
	return &Web{
		httpClient: httpClient,
		pdf:        pdf,
		feedParser: gofeed.NewParser(),
		log:        log,
	}
}

// Load fetches a page and extracts its readable text. Feeds produce one
// document per item and PDF responses are handed to the PDF loader.
func (w *Web) Load(ctx context.Context, src domain.Source) (Result, error) {
	rawURL := src.Ref()
	if err := ValidateWebsiteURL(rawURL); err != nil {
		return Result{}, err
	}

	body, mediaType, err := w.fetch(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	switch {
	case mediaType == "application/pdf" || bytes.HasPrefix(body, []byte(pdfMagic)):
		docs, pdfErr := w.pdf.loadBytes(ctx, body, rawURL)
		if pdfErr != nil {
			return Result{}, fmt.Errorf("load PDF: %w", pdfErr)
		}

		return Result{Documents: docs, Info: domain.ContentPages}, nil
	case isFeed(mediaType, body):
		docs, feedErr := w.parseFeed(body, rawURL)
		if feedErr != nil {
			return Result{}, feedErr
		}

		return Result{Documents: docs, Info: domain.ContentFeed}, nil
	default:
		doc, htmlErr := parseArticle(body, rawURL)
		if htmlErr != nil {
			return Result{}, htmlErr
		}

		return Result{Documents: []schema.Document{doc}, Info: domain.ContentArticle}, nil
	}
}

func (w *Web) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	res, err := w.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			w.log.Error("Failed to close response body",
				"url", rawURL,
				"error", closeErr)
		}
	}()

	if res.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, webBodyLimit))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	mediaType, _, err := mime.ParseMediaType(res.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	return body, mediaType, nil
}

func isFeed(mediaType string, body []byte) bool {
	switch mediaType {
	case "application/rss+xml", "application/atom+xml", "application/feed+json":
		return true
	case "text/html", "application/xhtml+xml":
		return false
	}

	return gofeed.DetectFeedType(bytes.NewReader(body)) != gofeed.FeedTypeUnknown
}

func (w *Web) parseFeed(body []byte, rawURL string) ([]schema.Document, error) {
	parsed, err := w.feedParser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	docs := make([]schema.Document, 0, min(len(parsed.Items), feedMaxItems))
	for _, item := range parsed.Items {
		if len(docs) == feedMaxItems {
			break
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		text := strings.TrimSpace(strings.Join([]string{
			strings.TrimSpace(item.Title),
			htmlText(content),
		}, "\n\n"))
		if text == "" {
			continue
		}

		docs = append(docs, schema.Document{
			PageContent: text,
			Metadata: map[string]any{
				"source": rawURL,
				"title":  strings.TrimSpace(item.Title),
				"link":   strings.TrimSpace(item.Link),
			},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: feed has no items", ErrNoContent)
	}

	return docs, nil
}

func parseArticle(body []byte, rawURL string) (schema.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return schema.Document{}, fmt.Errorf("parse HTML: %w", err)
	}

	title, ok := doc.Find(`meta[property="og:title"]`).Attr("content")
	if !ok || strings.TrimSpace(title) == "" {
		title = doc.Find("title").First().Text()
	}
	title = strings.TrimSpace(title)

	doc.Find(noiseSelector).Remove()

	var text string
	for _, selector := range contentSelectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			text = selectionText(selected.First())
			if text != "" {
				break
			}
		}
	}

	if text == "" {
		text = selectionText(doc.Find("body"))
	}

	if text == "" {
		return schema.Document{}, fmt.Errorf("%w: page has no readable text", ErrNoContent)
	}

	return schema.Document{
		PageContent: text,
		Metadata:    map[string]any{"source": rawURL, "title": title},
	}, nil
}

// selectionText returns every text node under s. Block elements and <br>
// start a new paragraph; whitespace inside a paragraph is collapsed.
func selectionText(s *goquery.Selection) string {
	var (
		blocks  []string
		current strings.Builder
	)

	flush := func() {
		if t := collapseSpaces(current.String()); t != "" {
			blocks = append(blocks, t)
		}
		current.Reset()
	}

	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			name := goquery.NodeName(child)

			switch {
			case name == "#text":
				current.WriteString(child.Text())
			case strings.HasPrefix(name, "#"):
				// Comments and doctypes carry no readable text.
			case blockElements[name]:
				flush()
				walk(child)
				flush()
			default:
				walk(child)
			}
		})
	}

	s.Each(func(_ int, sel *goquery.Selection) {
		walk(sel)
		flush()
	})

	return strings.Join(blocks, "\n\n")
}

func htmlText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return collapseSpaces(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpaces(fragment)
	}

	return selectionText(doc.Selection)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
