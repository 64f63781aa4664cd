package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"learnloop/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func newTestServer(t *testing.T, db *store.DB) *Server {
	t.Helper()
	srv, err := New(db, "user-1")
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func seedArticle(t *testing.T, db *store.DB, requestID string) {
	t.Helper()
	err := db.UpsertGeneratedContent(store.GeneratedContent{
		RequestID:      requestID,
		UserID:         "user-1",
		Status:         store.StatusCompleted,
		Body:           ptr("# How Volcanoes Form\n\nMagma rises through the crust."),
		TopicSummary:   ptr("How volcanoes form"),
		Category:       ptr("Science"),
		ReadingMinutes: 5,
		Sources:        []string{"https://example.com/volcanoes"},
	})
	if err != nil {
		t.Fatalf("seeding generated content: %v", err)
	}
	if _, err := db.AppendHistoryEntry("user-1", requestID, "How volcanoes form", ptr("Science")); err != nil {
		t.Fatalf("seeding history: %v", err)
	}
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	seedArticle(t, db, "req-1")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "How volcanoes form") {
		t.Error("expected topic summary in response body")
	}
}

func TestArticleRoute(t *testing.T) {
	db := openTestDB(t)
	seedArticle(t, db, "req-1")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/article/req-1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>How Volcanoes Form</h1>") {
		t.Error("expected rendered markdown heading in response")
	}
	if !strings.Contains(body, "5 min read") {
		t.Error("expected reading time in response")
	}
}

func TestArticleRouteNotFound(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/article/missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestToggleSavedRoute(t *testing.T) {
	db := openTestDB(t)
	seedArticle(t, db, "req-1")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("POST", "/article/req-1/save", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	saved, err := db.IsSaved("user-1", "req-1")
	if err != nil {
		t.Fatalf("checking saved: %v", err)
	}
	if !saved {
		t.Error("expected article saved after toggle")
	}

	// Toggle again unsaves
	req = httptest.NewRequest("POST", "/article/req-1/save", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	saved, _ = db.IsSaved("user-1", "req-1")
	if saved {
		t.Error("expected article unsaved after second toggle")
	}
}

func TestWorkerResultRoute(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	body := strings.NewReader(`{
		"status": "completed",
		"content": "# Tides\n\nThe moon pulls the ocean.",
		"topicSummary": "Why tides happen",
		"category": "Science",
		"readingMinutes": 4,
		"sources": ["https://example.com/tides"]
	}`)
	req := httptest.NewRequest("POST", "/worker/user-1/req-9", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := db.GetGeneratedContent("user-1", "req-9")
	if err != nil {
		t.Fatalf("loading stored content: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored content")
	}
	if stored.Status != store.StatusCompleted {
		t.Errorf("expected completed status, got %q", stored.Status)
	}
	if stored.TopicSummary == nil || *stored.TopicSummary != "Why tides happen" {
		t.Error("expected topic summary stored")
	}
	if len(stored.Sources) != 1 {
		t.Errorf("expected 1 source, got %d", len(stored.Sources))
	}
}

func TestWorkerResultError(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	body := strings.NewReader(`{"status": "error", "error": "model unavailable"}`)
	req := httptest.NewRequest("POST", "/worker/user-1/req-9", body)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	stored, _ := db.GetGeneratedContent("user-1", "req-9")
	if stored == nil || stored.Status != store.StatusError {
		t.Fatal("expected error record stored")
	}
	if stored.Error == nil || *stored.Error != "model unavailable" {
		t.Error("expected error reason stored")
	}
}

func TestWorkerResultRejectsBadRequests(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	// Non-terminal status
	req := httptest.NewRequest("POST", "/worker/user-1/req-9", strings.NewReader(`{"status": "working"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-terminal status, got %d", rec.Code)
	}

	// Missing request id segment
	req = httptest.NewRequest("POST", "/worker/user-1", strings.NewReader(`{"status": "completed"}`))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing request id, got %d", rec.Code)
	}

	// GET not allowed
	req = httptest.NewRequest("GET", "/worker/user-1/req-9", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestRecentRoute(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.AddRecentArticle("user-1", "# Ocean Currents\n\nBody."); err != nil {
		t.Fatalf("seeding recent article: %v", err)
	}
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/recent", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Ocean Currents") {
		t.Error("expected recent article title in response")
	}
}

func TestSavedRoute(t *testing.T) {
	db := openTestDB(t)
	seedArticle(t, db, "req-1")
	if err := db.SetSaved("user-1", "req-1", true); err != nil {
		t.Fatalf("saving article: %v", err)
	}
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/saved", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "How volcanoes form") {
		t.Error("expected saved article in response")
	}
}

func TestStaticRoute(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/static/style.css", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "entry-list") {
		t.Error("expected CSS content")
	}
}
