// Package web serves the quiz views, the JSON API and the generation
// progress stream on top of quiz.Service.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizforge/internal/logging"
	"github.com/gokatarajesh/quizforge/internal/quiz"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"quiz.html", "test.html", "result.html"}

// Options tunes the web layer.
type Options struct {
	// AllowedOrigins restricts WebSocket upgrades; empty allows same-host only.
	AllowedOrigins []string
	// ProgressInterval is how often generation phases rotate on the stream.
	ProgressInterval time.Duration
	// UploadLimit caps the size of an uploaded question file.
	UploadLimit int64
}

// Handler holds the HTTP handlers for views, API and stream.
type Handler struct {
	svc      *quiz.Service
	pages    map[string]*template.Template
	upgrader websocket.Upgrader
	opts     Options
	logger   zerolog.Logger
}

func NewHandler(svc *quiz.Service, opts Options, logger zerolog.Logger) (*Handler, error) {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 1200 * time.Millisecond
	}
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = 1 << 20
	}

	funcs := template.FuncMap{
		"join": strings.Join,
		"deref": func(b *bool) bool {
			return b != nil && *b
		},
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	h := &Handler{
		svc:    svc,
		pages:  pages,
		opts:   opts,
		logger: logger.With().Str("component", "web").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h, nil
}

// Routes registers the browser-facing views and the generation stream.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/quiz", http.StatusMovedPermanently)
	})
	r.Get("/quiz", h.entryPage)
	r.Post("/quiz/generate", h.generateForm)
	r.Post("/quiz/upload", h.uploadForm)

	r.Route("/test", func(r chi.Router) {
		r.Get("/", h.testPage)
		r.Post("/select", h.selectForm)
		r.Post("/submit", h.submitForm)
		r.Post("/next", h.nextForm)
		r.Post("/previous", h.previousForm)
		r.Get("/result", h.resultPage)
		r.Post("/result/retake", h.retakeForm)
	})

	r.Get("/ws/generate", h.generateStream)
}

// APIRoutes registers the JSON API, to be mounted under /v1.
func (h *Handler) APIRoutes(r chi.Router) {
	r.Post("/generate", h.apiGenerate)
	r.Post("/upload", h.apiUpload)
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.apiSession)
		r.Post("/select", h.apiSelect)
		r.Post("/submit", h.apiSubmit)
		r.Post("/next", h.apiNext)
		r.Post("/previous", h.apiPrevious)
	})
	r.Get("/result", h.apiResult)
	r.Delete("/result", h.apiRetake)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.FromContext(r.Context()).Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	// same host as the page
	host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	return strings.EqualFold(host, r.Host)
}
