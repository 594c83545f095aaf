package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"docsum/internal/domain"
	"docsum/internal/pipeline"
)

var templateFuncs = template.FuncMap{ //nolint:gochecknoglobals // Shared by all pages.
	"lines": func(s string) []string {
		return strings.Split(strings.TrimSpace(s), "\n")
	},
	"kindIcon": kindIcon,
}

type kindOption struct {
	Value   domain.SourceKind
	Label   string
	Icon    string
	Checked bool
}

type pageData struct {
	Kinds       []kindOption
	Kind        domain.SourceKind
	URL         string
	FileName    string
	Summary     *domain.Summary
	Error       string
	Hint        string
	Info        string
	Success     string
	MaxUploadMB int64
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
		return ""
	}
}

func (s *Server) newPageData(kind domain.SourceKind) pageData {
	if kind == "" {
		kind = domain.SourceYouTube
	}

	kinds := make([]kindOption, 0, len(domain.SourceKinds))
	for _, k := range domain.SourceKinds {
		kinds = append(kinds, kindOption{
			Value:   k,
			Label:   k.Label(),
			Icon:    kindIcon(k),
			Checked: k == kind,
		})
	}

	return pageData{
		Kinds:       kinds,
		Kind:        kind,
		MaxUploadMB: s.opts.MaxUploadBytes >> 20, //nolint:mnd // Bytes to MB.
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseSourceKind(r.URL.Query().Get("kind"))
	if err != nil {
		kind = domain.SourceYouTube
	}

	s.renderPage(w, r, http.StatusOK, s.newPageData(kind))
}

func (s *Server) handleSummarizeForm(w http.ResponseWriter, r *http.Request) {
	src, err := s.readSource(w, r)
	if err != nil {
		data := s.newPageData(domain.SourceYouTube)
		data.Error = "Could not read the form"
		data.Hint = err.Error()
		s.renderPage(w, r, http.StatusBadRequest, data)
		return
	}

	data := s.newPageData(src.Kind)
	data.URL = src.URL
	data.FileName = src.FileName

	if !s.allow(r, src.Kind) {
		data.Error = msgRateLimited
		data.Hint = hintRateLimited
		s.renderPage(w, r, http.StatusTooManyRequests, data)
		return
	}

	summary, err := s.svc.Summarize(r.Context(), src)
	if err != nil {
		data.Error, data.Hint = pipeline.Failure(err)
		s.renderPage(w, r, statusForError(err), data)
		return
	}

	data.Summary = summary
	data.Info = "Successfully summarized " + strings.ToLower(src.Kind.Label())
	if summary.Cached {
		data.Info += " (from recent history)"
	}
	data.Success = "Summary completed!"

	s.renderPage(w, r, http.StatusOK, data)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.log.ErrorContext(r.Context(), "Failed to render page",
			"error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
