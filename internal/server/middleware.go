package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"docsum/internal/domain"
	"docsum/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		path := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		s.metrics.ObserveHTTP(r.Method, path, status, elapsed)

		level := slogLevelForStatus(status)
		s.log.Log(r.Context(), level, "HTTP request is served",
			"method", r.Method,
			"path", r.URL.Path,
			"route", path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"elapsed", elapsed,
			"requestID", middleware.GetReqID(r.Context()),
			"remoteAddr", r.RemoteAddr)
	})
}

// allow reports whether the client behind r may start another summary.
// Rejections are counted as rate limited summaries of kind.
func (s *Server) allow(r *http.Request, kind domain.SourceKind) bool {
	if s.limiter == nil || s.limiter.Allow(clientKey(r)) {
		return true
	}

	s.metrics.ObserveSummary(string(kind), metrics.OutcomeRateLimited, 0)

	return false
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func slogLevelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
