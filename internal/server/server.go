package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"learnloop/internal/saving"
	"learnloop/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the local HTTP server. It renders the learner's content and
// receives generation results from the worker callback.
type Server struct {
	db     *store.DB
	saving *saving.Coordinator
	userID string
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server for the given user profile.
func New(db *store.DB, userID string) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "article.html", "recent.html", "saved.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:     db,
		saving: saving.NewCoordinator(db),
		userID: userID,
		pages:  pages,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/article/", s.handleArticle)
	s.mux.HandleFunc("/recent", s.handleRecent)
	s.mux.HandleFunc("/saved", s.handleSaved)
	s.mux.HandleFunc("/worker/", s.handleWorkerResult)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	history, err := s.db.FetchFullHistory(s.userID, 50)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, _ := s.db.GetStats(s.userID)
	pending, _ := s.db.PendingRequest(s.userID)

	s.render(w, "index.html", map[string]any{
		"History": history,
		"Stats":   stats,
		"Pending": pending,
	})
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/article/")
	if path == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if requestID, ok := strings.CutSuffix(path, "/save"); ok {
		s.handleToggleSaved(w, r, requestID)
		return
	}

	rec, err := s.db.GetGeneratedContent(s.userID, path)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, r)
		return
	}

	saved, _ := s.db.IsSaved(s.userID, path)
	excerpts, _ := s.db.GetSourceExcerpts(path)

	s.render(w, "article.html", map[string]any{
		"Content":  rec,
		"Saved":    saved,
		"Excerpts": excerpts,
	})
}

func (s *Server) handleToggleSaved(w http.ResponseWriter, r *http.Request, requestID string) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/article/"+requestID, http.StatusFound)
		return
	}

	if _, err := s.saving.ToggleSaved(s.userID, requestID); err != nil {
		log.Printf("Error toggling saved for %s: %v", requestID, err)
	}
	http.Redirect(w, r, "/article/"+requestID, http.StatusFound)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	articles, err := s.db.GetRecentArticles(s.userID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "recent.html", map[string]any{
		"Articles": articles,
	})
}

func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.ListSaved(s.userID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.render(w, "saved.html", map[string]any{
		"Entries": entries,
	})
}

// workerResult is the JSON body the generation worker posts back once a
// request finishes.
type workerResult struct {
	Status         string   `json:"status"`
	Content        *string  `json:"content"`
	TopicSummary   *string  `json:"topicSummary"`
	Category       *string  `json:"category"`
	ReadingMinutes int      `json:"readingMinutes"`
	Sources        []string `json:"sources"`
	Error          *string  `json:"error"`
}

func (s *Server) handleWorkerResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/worker/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "Expected /worker/{userID}/{requestID}", http.StatusBadRequest)
		return
	}
	userID, requestID := parts[0], parts[1]

	var result workerResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if !store.Terminal(result.Status) {
		http.Error(w, fmt.Sprintf("Unknown status %q", result.Status), http.StatusBadRequest)
		return
	}

	err := s.db.UpsertGeneratedContent(store.GeneratedContent{
		RequestID:      requestID,
		UserID:         userID,
		Status:         result.Status,
		Body:           result.Content,
		TopicSummary:   result.TopicSummary,
		Category:       result.Category,
		ReadingMinutes: result.ReadingMinutes,
		Sources:        result.Sources,
		Error:          result.Error,
	})
	if err != nil {
		log.Printf("Error storing worker result for %s: %v", requestID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Printf("Worker result stored: request=%s status=%s", requestID, result.Status)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *store.DB, userID string, port int) error {
	srv, err := New(db, userID)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
