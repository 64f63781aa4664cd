package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSend(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	err := client.Send(context.Background(), Request{
		UserID:           "u1",
		DisplayName:      "Fede",
		Categories:       []string{"biology", "history"},
		DailyMinutes:     5,
		HistorySummaries: []string{"Intro to photosynthesis"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.UserID != "u1" {
		t.Errorf("expected userId 'u1', got %q", got.UserID)
	}
	if len(got.Categories) != 2 {
		t.Errorf("expected 2 categories, got %d", len(got.Categories))
	}
	if got.DailyMinutes != 5 {
		t.Errorf("expected dailyMinutes 5, got %d", got.DailyMinutes)
	}
	if len(got.HistorySummaries) != 1 || got.HistorySummaries[0] != "Intro to photosynthesis" {
		t.Errorf("expected history summaries to be sent, got %v", got.HistorySummaries)
	}
}

func TestSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "worker busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)
	if err := client.Send(context.Background(), Request{UserID: "u1"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestSendNoURL(t *testing.T) {
	client := NewClient("", 0)
	if err := client.Send(context.Background(), Request{UserID: "u1"}); err == nil {
		t.Fatal("expected error for missing webhook URL")
	}
}
