package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"docsum/internal/domain"
	"docsum/internal/metrics"
	"docsum/internal/ratelimiter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	requestTimeout    = 5 * time.Minute
	formOverheadBytes = 1 << 20
)

//go:embed templates/*.html
var templatesFS embed.FS

// Summarizer is the part of pipeline.Service the server needs.
type Summarizer interface {
	Summarize(ctx context.Context, src domain.Source) (*domain.Summary, error)
	History(ctx context.Context, limit int) ([]domain.Summary, error)
	Get(ctx context.Context, id string) (*domain.Summary, error)
}

type Options struct {
	Addr           string
	MaxUploadBytes int64
}

type Server struct {
	svc     Summarizer
	limiter *ratelimiter.Limiter
	metrics *metrics.Metrics
	page    *template.Template
	router  chi.Router
	opts    Options
	log     *slog.Logger
}

// New builds the router. limiter and m may be nil.
func New(
	svc Summarizer,
	limiter *ratelimiter.Limiter,
	m *metrics.Metrics,
	opts Options,
	log *slog.Logger,
) (*Server, error) {
	page, err := template.New("index.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		svc:     svc,
		limiter: limiter,
		metrics: m,
		page:    page,
		opts:    opts,
		log:     log,
	}
	s.router = s.buildRouter()

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server is listening", "addr", s.opts.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.log.Info("HTTP server is stopped")

	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/", s.handleIndex)
	r.Post("/summarize", s.handleSummarizeForm)

	r.Route("/api", func(r chi.Router) {
		r.Post("/summaries", s.handleCreateSummary)
		r.Get("/summaries", s.handleListSummaries)
		r.Get("/summaries/{id}", s.handleGetSummary)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

func (s *Server) maxBodyBytes() int64 {
	return s.opts.MaxUploadBytes + formOverheadBytes
}
