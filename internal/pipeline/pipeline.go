package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docsum/internal/database"
	"docsum/internal/domain"
	"docsum/internal/loader"
	"docsum/internal/metrics"
	"docsum/internal/summarizer"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRunTimeout = 3 * time.Minute
	maxHistoryLimit   = 200
)

// Store persists created summaries. database.Database implements it.
type Store interface {
	InsertSummary(ctx context.Context, s *domain.Summary) error
	GetSummary(ctx context.Context, id string) (*domain.Summary, error)
	FindRecentSummary(ctx context.Context, inputKey string, notBefore time.Time) (*domain.Summary, error)
	ListSummaries(ctx context.Context, limit int) ([]domain.Summary, error)
}

type Options struct {
	CacheMaxEntries int
	CacheTTL        time.Duration
	MaxUploadBytes  int64
	RunTimeout      time.Duration
}

type Service struct {
	loader     loader.Loader
	summarizer summarizer.Summarizer
	store      Store
	metrics    *metrics.Metrics
	cache      *summaryCache
	group      singleflight.Group
	opts       Options
	now        func() time.Time
	log        *slog.Logger
}

// New builds the service. A nil summarizer makes every request fail with
// the missing key message; a nil store disables history.
func New(
	l loader.Loader,
	s summarizer.Summarizer,
	store Store,
	m *metrics.Metrics,
	opts Options,
	log *slog.Logger,
) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = defaultRunTimeout
	}

	cacheEntries := opts.CacheMaxEntries
	if opts.CacheTTL <= 0 {
		cacheEntries = 0
	}

	return &Service{
		loader:     l,
		summarizer: s,
		store:      store,
		metrics:    m,
		cache:      newSummaryCache(cacheEntries),
		opts:       opts,
		now:        time.Now,
		log:        log,
	}
}

// Summarize loads the source and asks the model for a summary. Identical
// inputs are answered from the cache or history while they are fresh, and
// concurrent identical requests share one run.
func (s *Service) Summarize(ctx context.Context, src domain.Source) (*domain.Summary, error) {
	start := s.now()
	kind := string(src.Kind)

	if err := s.validate(src); err != nil {
		s.metrics.ObserveSummary(kind, metrics.OutcomeInvalid, 0)
		return nil, err
	}

	if s.summarizer == nil {
		s.metrics.ObserveSummary(kind, metrics.OutcomeLLMFailed, 0)
		return nil, summarizeError(src.Kind, summarizer.ErrNotConfigured)
	}

	key := src.InputKey()
	if cached, ok := s.cache.get(key, start); ok {
		s.metrics.ObserveSummary(kind, metrics.OutcomeCached, 0)
		cached.Cached = true

		return &cached, nil
	}

	// Only the caller whose function ran sets leader. Waiters that joined the
	// run are reported as cached so the run is counted and timed once.
	leader := false
	ch := s.group.DoChan(key, func() (any, error) {
		leader = true

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
		defer cancel()

		return s.run(runCtx, src, key)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for summary: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			s.observeFailure(kind, res.Err)
			return nil, res.Err
		}

		summary := *res.Val.(*domain.Summary) //nolint:forcetypeassert // run returns *domain.Summary.
		if !leader {
			summary.Cached = true
		}
		if summary.Cached {
			s.metrics.ObserveSummary(kind, metrics.OutcomeCached, 0)
		} else {
			s.metrics.ObserveSummary(kind, metrics.OutcomeSuccess, s.now().Sub(start))
		}

		return &summary, nil
	}
}

func (s *Service) run(ctx context.Context, src domain.Source, key string) (*domain.Summary, error) {
	if recent := s.findRecent(ctx, key); recent != nil {
		s.cache.set(key, *recent, recent.CreatedAt.Add(s.opts.CacheTTL), s.now())
		recent.Cached = true

		return recent, nil
	}

	res, err := s.loader.Load(ctx, src)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to load source",
			"sourceKind", src.Kind,
			"source", src.Ref(),
			"error", err)

		return nil, loadError(src.Kind, err)
	}

	texts := make([]string, 0, len(res.Documents))
	for _, doc := range res.Documents {
		texts = append(texts, doc.PageContent)
	}

	if len(texts) == 0 {
		return nil, loadError(src.Kind, loader.ErrNoContent)
	}

	input := summarizer.Input{Documents: texts, Kind: src.Kind}
	if src.Kind != domain.SourcePDF {
		input.SourceURL = src.Ref()
	}

	out, err := s.summarizer.Summarize(ctx, input)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to summarize source",
			"sourceKind", src.Kind,
			"source", src.Ref(),
			"documents", len(texts),
			"error", err)

		return nil, summarizeError(src.Kind, err)
	}

	s.metrics.ObserveTokens(out.Model, out.PromptTokens, out.CompletionTokens)

	summary := &domain.Summary{
		ID:            uuid.NewString(),
		Kind:          src.Kind,
		SourceRef:     src.Ref(),
		InputKey:      key,
		Text:          out.Text,
		ContentInfo:   res.Info,
		DocumentCount: len(texts),
		SummaryWords:  domain.WordCount(out.Text),
		SourceWords:   domain.WordCount(strings.Join(texts, " ")),
		Model:         out.Model,
		CreatedAt:     s.now().UTC(),
	}

	s.metrics.ObserveSourceWords(string(src.Kind), summary.SourceWords)

	if s.store != nil {
		if err = s.store.InsertSummary(ctx, summary); err != nil {
			s.log.ErrorContext(ctx, "Failed to store summary",
				"summaryID", summary.ID,
				"error", err)
		}
	}

	s.cache.set(key, *summary, summary.CreatedAt.Add(s.opts.CacheTTL), s.now())

	s.log.InfoContext(ctx, "Summary is created",
		"summaryID", summary.ID,
		"sourceKind", summary.Kind,
		"contentInfo", summary.ContentInfo,
		"documents", summary.DocumentCount,
		"sourceWords", summary.SourceWords,
		"summaryWords", summary.SummaryWords,
		"model", summary.Model)

	return summary, nil
}

func (s *Service) findRecent(ctx context.Context, key string) *domain.Summary {
	if s.store == nil || s.opts.CacheTTL <= 0 {
		return nil
	}

	recent, err := s.store.FindRecentSummary(ctx, key, s.now().Add(-s.opts.CacheTTL))
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			s.log.WarnContext(ctx, "Failed to look up recent summary",
				"error", err)
		}

		return nil
	}

	return recent
}

func (s *Service) validate(src domain.Source) error {
	switch src.Kind {
	case domain.SourceYouTube:
		if strings.TrimSpace(src.URL) == "" {
			return validationError(src.Kind, msgEnterURL, loader.ErrInvalidURL)
		}
		if _, err := loader.ValidateYouTubeURL(src.URL); err != nil {
			return validationError(src.Kind, msgInvalidYouTube, err)
		}
	case domain.SourceWebsite:
		if strings.TrimSpace(src.URL) == "" {
			return validationError(src.Kind, msgEnterURL, loader.ErrInvalidURL)
		}
		if err := loader.ValidateWebsiteURL(src.URL); err != nil {
			return validationError(src.Kind, msgInvalidURL, err)
		}
	case domain.SourcePDF:
		if len(src.Data) == 0 {
			return validationError(src.Kind, msgUploadPDF, errors.New("no file uploaded"))
		}
		if s.opts.MaxUploadBytes > 0 && int64(len(src.Data)) > s.opts.MaxUploadBytes {
			return validationError(src.Kind,
				fmt.Sprintf("PDF is too large (limit %d MB)", s.opts.MaxUploadBytes>>20), //nolint:mnd // Bytes to MB.
				fmt.Errorf("file has %d bytes", len(src.Data)))
		}
	default:
		return validationError(src.Kind, "Please choose a content type", loader.ErrUnsupportedKind)
	}

	return nil
}

func (s *Service) observeFailure(kind string, err error) {
	var e *Error
	if !errors.As(err, &e) {
		return
	}

	switch e.Stage {
	case StageLoad:
		s.metrics.ObserveSummary(kind, metrics.OutcomeLoadFailed, 0)
	case StageSummarize:
		s.metrics.ObserveSummary(kind, metrics.OutcomeLLMFailed, 0)
	case StageValidate:
		s.metrics.ObserveSummary(kind, metrics.OutcomeInvalid, 0)
	}
}

// History returns the newest summaries first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.Summary, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	summaries, err := s.store.ListSummaries(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}

	return summaries, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Summary, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}

	summary, err := s.store.GetSummary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	return summary, nil
}
