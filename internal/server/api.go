package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"docsum/internal/database"
	"docsum/internal/domain"
	"docsum/internal/pipeline"
	"docsum/internal/summarizer"

	"github.com/go-chi/chi/v5"
)

const (
	defaultHistoryLimit = 20
	multipartMemory     = 8 << 20
)

const (
	msgRateLimited  = "Too many requests"
	hintRateLimited = "Please wait a moment before summarizing again"
)

type createSummaryRequest struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (s *Server) handleCreateSummary(w http.ResponseWriter, r *http.Request) {
	src, err := s.readSource(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	if !s.allow(r, src.Kind) {
		writeError(w, http.StatusTooManyRequests, msgRateLimited, hintRateLimited)
		return
	}

	summary, err := s.svc.Summarize(r.Context(), src)
	if err != nil {
		message, hint := pipeline.Failure(err)
		writeError(w, statusForError(err), message, hint)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = n
	}

	summaries, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to list summaries",
			"error", err,
			"limit", limit)
		writeError(w, statusForError(err), "failed to list summaries", "")
		return
	}

	if summaries == nil {
		summaries = []domain.Summary{}
	}

	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "summary not found", "")
			return
		}

		s.log.ErrorContext(r.Context(), "Failed to get summary",
			"error", err)
		writeError(w, statusForError(err), "failed to get summary", "")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// readSource accepts a JSON body with kind and url, or a multipart form with
// kind and either url or file.
func (s *Server) readSource(w http.ResponseWriter, r *http.Request) (domain.Source, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var req createSummaryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.Source{}, fmt.Errorf("invalid JSON body: %w", err)
		}

		kind, err := domain.ParseSourceKind(req.Kind)
		if err != nil {
			return domain.Source{}, err
		}

		if kind == domain.SourcePDF {
			return domain.Source{}, errors.New("PDF documents must be uploaded as multipart/form-data")
		}

		return domain.Source{Kind: kind, URL: strings.TrimSpace(req.URL)}, nil
	case "multipart/form-data", "application/x-www-form-urlencoded":
		return s.readFormSource(r)
	default:
		return domain.Source{}, fmt.Errorf("unsupported content type %q", mediaType)
	}
}

func (s *Server) readFormSource(r *http.Request) (domain.Source, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return domain.Source{}, fmt.Errorf("parse form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return domain.Source{}, fmt.Errorf("parse form: %w", err)
	}

	kind, err := domain.ParseSourceKind(r.FormValue("kind"))
	if err != nil {
		return domain.Source{}, err
	}

	src := domain.Source{Kind: kind, URL: strings.TrimSpace(r.FormValue("url"))}
	if kind != domain.SourcePDF {
		return src, nil
	}

	if r.MultipartForm == nil {
		return src, nil
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return src, nil
	}
	if err != nil {
		return domain.Source{}, fmt.Errorf("read file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			s.log.Error("Failed to close uploaded file", "error", closeErr)
		}
	}()

	// One byte past the limit lets validation report the oversize.
	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		return domain.Source{}, fmt.Errorf("read file: %w", err)
	}

	src.FileName = header.Filename
	src.Data = data

	return src, nil
}

func statusForError(err error) int {
	var e *pipeline.Error
	if errors.As(err, &e) {
		switch e.Stage {
		case pipeline.StageValidate:
			return http.StatusBadRequest
		case pipeline.StageLoad:
			return http.StatusUnprocessableEntity
		case pipeline.StageSummarize:
			if errors.Is(err, summarizer.ErrNotConfigured) {
				return http.StatusServiceUnavailable
			}

			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, pipeline.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, hint string) {
	writeJSON(w, status, errorResponse{Error: message, Hint: hint})
}
