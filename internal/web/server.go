package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"

	"github.com/conorfennell/notetaker/internal/app"
	"github.com/conorfennell/notetaker/internal/logger"
	"github.com/conorfennell/notetaker/internal/metrics"
	"github.com/conorfennell/notetaker/internal/notes"
	"github.com/conorfennell/notetaker/internal/view"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Options carries the optional collaborators of a Server.
type Options struct {
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	// MCP, when set, is mounted on /mcp.
	MCP http.Handler
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	app       *app.App
	router    *http.ServeMux
	handler   http.Handler
	templates *template.Template
	md        goldmark.Markdown
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	mcp       http.Handler
}

// NewServer creates and configures a new server.
func NewServer(a *app.App, opts Options) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		app:       a,
		router:    http.NewServeMux(),
		templates: tpl,
		md:        goldmark.New(),
		log:       opts.Logger,
		metrics:   opts.Metrics,
		mcp:       opts.MCP,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if err := s.routes(); err != nil {
		return nil, err
	}

	// Metrics sits directly on the mux so it sees the routed pattern.
	s.handler = s.router
	if s.metrics != nil {
		s.handler = s.metrics.Middleware(s.handler)
	}
	s.handler = s.withRequestLogger(s.handler)
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("create sub-filesystem for static assets: %w", err)
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// HTMX widget
	s.router.HandleFunc("GET /{$}", s.handleIndex())
	s.router.HandleFunc("GET /notes", s.handleWidget())
	s.router.HandleFunc("POST /notes", s.handleSave())
	s.router.HandleFunc("GET /notes/{id}", s.handleOpen())
	s.router.HandleFunc("POST /notes/update", s.handleUpdate())
	s.router.HandleFunc("DELETE /notes/{id}", s.handleDelete())
	s.router.HandleFunc("POST /reset", s.handleReset())

	// JSON API
	s.router.HandleFunc("GET /api/notes", s.handleAPIList())
	s.router.HandleFunc("POST /api/notes", s.handleAPICreate())
	s.router.HandleFunc("GET /api/notes/{id}", s.handleAPIGet())
	s.router.HandleFunc("PUT /api/notes/{id}", s.handleAPIUpdate())
	s.router.HandleFunc("DELETE /api/notes/{id}", s.handleAPIDelete())

	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.mcp != nil {
		// MCP uses POST for requests and GET for SSE streams
		s.router.Handle("POST /mcp", s.mcp)
		s.router.Handle("GET /mcp", s.mcp)
		s.router.Handle("DELETE /mcp", s.mcp)
	}
	return nil
}

// withRequestLogger tags every request with an id and puts a matching log
// entry in the request context.
func (s *Server) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		entry := logger.WithRequestID(s.log, id).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		ctx := logger.NewContext(r.Context(), entry)
		next.ServeHTTP(w, r.WithContext(ctx))
		entry.Debug("request handled")
	})
}

// widgetData is what the widget templates render.
type widgetData struct {
	view.Page
	Preview template.HTML
}

func (s *Server) widgetData(page view.Page) widgetData {
	data := widgetData{Page: page}
	if page.Buffer.State() == view.Editing && page.Buffer.Body != "" {
		data.Preview = s.renderMarkdown(page.Buffer.Body)
	}
	return data
}

// renderMarkdown converts a note body to HTML. goldmark drops raw HTML by
// default, so the result is safe to embed.
func (s *Server) renderMarkdown(body string) template.HTML {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(body))
	}
	return template.HTML(buf.String())
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, s.widgetData(s.app.Page())); err != nil {
		logger.FromContext(r.Context(), s.log).WithError(err).Error("render template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// handleIndex renders the full page.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.app.Load(r.Context()); err != nil {
			s.actionError(w, err)
			return
		}
		s.render(w, r, "page", http.StatusOK)
	}
}

// handleWidget renders the widget without reloading from storage.
func (s *Server) handleWidget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, "widget", http.StatusOK)
	}
}

// handleSave creates a note from the form and re-renders the widget.
func (s *Server) handleSave() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := s.app.Save(r.Context(), r.PostFormValue("title"), r.PostFormValue("body"))
		if err != nil && !errors.Is(err, notes.ErrDuplicateTitle) {
			s.actionError(w, err)
			return
		}
		// A duplicate title is shown to the user through the notice.
		s.render(w, r, "widget", http.StatusOK)
	}
}

// handleOpen loads a note into the form.
func (s *Server) handleOpen() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := noteID(w, r)
		if !ok {
			return
		}
		if _, err := s.app.Open(r.Context(), id); err != nil {
			s.actionError(w, err)
			return
		}
		s.render(w, r, "widget", http.StatusOK)
	}
}

// handleUpdate writes the form back to the open note.
func (s *Server) handleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := s.app.Update(r.Context(), r.PostFormValue("title"), r.PostFormValue("body"))
		if err != nil && !errors.Is(err, notes.ErrDuplicateTitle) {
			s.actionError(w, err)
			return
		}
		s.render(w, r, "widget", http.StatusOK)
	}
}

// handleDelete deletes a note when the request carries confirm=yes.
func (s *Server) handleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := noteID(w, r)
		if !ok {
			return
		}
		if _, err := s.app.Delete(r.Context(), id, requestConfirmer{r}); err != nil {
			s.actionError(w, err)
			return
		}
		s.render(w, r, "widget", http.StatusOK)
	}
}

// handleReset drops every note and asks the browser to reload.
func (s *Server) handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.app.Reset(r.Context(), requestConfirmer{r}); err != nil {
			s.actionError(w, err)
			return
		}
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Refresh", "true")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// actionError answers a failed widget action. HTMX does not swap error
// responses, so the page stays as it was before the action.
func (s *Server) actionError(w http.ResponseWriter, err error) {
	http.Error(w, http.StatusText(statusFor(err)), statusFor(err))
}

// requestConfirmer reads the answer to a browser-side hx-confirm dialog.
type requestConfirmer struct {
	r *http.Request
}

func (c requestConfirmer) Confirm(_ context.Context, _ string) bool {
	return c.r.FormValue("confirm") == "yes"
}

func statusFor(err error) int {
	switch app.Kind(err) {
	case "validation", "no_active_note":
		return http.StatusUnprocessableEntity
	case "not_found":
		return http.StatusNotFound
	case "duplicate_title":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func noteID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid note ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
