package loader

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"docsum/internal/domain"

	"github.com/tmc/langchaingo/schema"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

var (
	ErrInvalidURL      = errors.New("invalid URL")
	ErrNotYouTubeURL   = errors.New("not a YouTube URL")
	ErrNoVideoID       = errors.New("could not extract video ID from URL")
	ErrNotPDF          = errors.New("not a PDF file")
	ErrNoContent       = errors.New("no content extracted")
	ErrUnsupportedKind = errors.New("unsupported source kind")
)

// Result is the text extracted from a source, one document per page, feed
// item, transcript or article.
type Result struct {
	Documents []schema.Document
	Info      domain.ContentInfo
}

type Loader interface {
	Load(ctx context.Context, src domain.Source) (Result, error)
}

type Options struct {
	FetchTimeout       time.Duration
	InsecureSkipVerify bool
	YouTubeLanguages   []string
	SplitThreshold     int
	ChunkSize          int
	ChunkOverlap       int
}

// Set routes a source to the loader of its kind.
type Set struct {
	youTube Loader
	website Loader
	pdf     Loader
}

func NewSet(opts Options, log *slog.Logger) *Set {
	pdf := NewPDF(opts.SplitThreshold, opts.ChunkSize, opts.ChunkOverlap, log)

	return &Set{
		youTube: NewYouTube(newHTTPClient(opts.FetchTimeout, false), opts.YouTubeLanguages, log),
		website: NewWeb(newHTTPClient(opts.FetchTimeout, opts.InsecureSkipVerify), pdf, log),
		pdf:     pdf,
	}
}

func NewSetFromLoaders(youTube, website, pdf Loader) *Set {
	return &Set{youTube: youTube, website: website, pdf: pdf}
}

func (s *Set) Load(ctx context.Context, src domain.Source) (Result, error) {
	var l Loader

	switch src.Kind {
	case domain.SourceYouTube:
		l = s.youTube
	case domain.SourceWebsite:
		l = s.website
	case domain.SourcePDF:
		l = s.pdf
	}

	if l == nil {
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedKind, src.Kind)
	}

	return l.Load(ctx, src)
}

func newHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // Stdlib default.
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Opt-in via config.
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

func documentsText(docs []schema.Document, sep string) string {
	total := 0
	for i := range docs {
		total += len(docs[i].PageContent) + len(sep)
	}

	b := make([]byte, 0, total)
	for i := range docs {
		if i > 0 {
			b = append(b, sep...)
		}
		b = append(b, docs[i].PageContent...)
	}

	return string(b)
}
