package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "status", "snapshot"
}

// StatusPageData is the template data for the status page.
type StatusPageData struct {
	PageData
	Status    *ops.StatusOutput
	Collapsed map[string]bool
	Error     string
}

// SnapshotPageData is the template data for the saved snapshot page.
type SnapshotPageData struct {
	PageData
	Exists       bool
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	logger    *slog.Logger
	policy    *bluemonday.Policy
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	funcMap := template.FuncMap{
		"formatTime": formatTime,
		"statusLabel": func(s ops.SyncStatus) string {
			return strings.ReplaceAll(string(s), "-", " ")
		},
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"status":   "status.html",
		"snapshot": "snapshot.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		logger:    logger,
		policy:    bluemonday.UGCPolicy(),
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// publicError maps err to a StashError and the message safe to show.
func (r *Renderer) publicError(req *http.Request, err error) (*errors.StashError, string) {
	var sErr *errors.StashError
	if !stderrors.As(err, &sErr) {
		sErr = errors.NewInternal(err)
	}
	if sErr.Code == errors.ErrInternal {
		r.logger.Error("request failed", "path", req.URL.Path, "error", err)
		return sErr, "an internal error occurred"
	}
	return sErr, sErr.Message
}

// renderJSONError writes err as a JSON error object.
func (r *Renderer) renderJSONError(w http.ResponseWriter, req *http.Request, err error) {
	sErr, message := r.publicError(req, err)
	renderJSON(w, sErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(sErr.Code),
			"message": message,
			"status":  sErr.Status,
		},
	})
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	if wantsJSON(req) {
		r.renderJSONError(w, req, err)
		return
	}
	sErr, message := r.publicError(req, err)
	status := sErr.Status

	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderMarkdown converts markdown to HTML and strips anything unsafe.
// Tab titles and URLs come from arbitrary web pages.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// formatTime formats a time as "2006-01-02 15:04" UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
