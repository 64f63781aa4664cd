package generation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"learnloop/internal/store"
	"learnloop/internal/webhook"
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

type fakeSender struct {
	mu    sync.Mutex
	calls []webhook.Request
	err   error
}

func (f *fakeSender) Send(ctx context.Context, r webhook.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r)
	return f.err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSender) lastCall() webhook.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func testProfile() Profile {
	return Profile{DisplayName: "Fede", Categories: []string{"biology"}, DailyMinutes: 5}
}

func TestRequestGeneration(t *testing.T) {
	db := openTestDB(t)
	sender := &fakeSender{}
	coord := NewCoordinator(db, sender, 0)

	requestID, err := coord.RequestGeneration(context.Background(), "u1", testProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requestID == "" {
		t.Fatal("expected a request id")
	}

	if sender.callCount() != 1 {
		t.Fatalf("expected 1 webhook call, got %d", sender.callCount())
	}
	call := sender.lastCall()
	if call.UserID != "u1" || call.DisplayName != "Fede" || call.DailyMinutes != 5 {
		t.Errorf("unexpected webhook payload: %+v", call)
	}

	pending, _ := db.PendingRequest("u1")
	if pending != requestID {
		t.Errorf("expected pending marker %q, got %q", requestID, pending)
	}

	has, _ := db.HasRequestAudit(requestID)
	if !has {
		t.Error("expected request audit marker")
	}

	status, id := coord.Session("u1").Snapshot()
	if status != StatusPending || id != requestID {
		t.Errorf("expected pending session for %q, got %s/%q", requestID, status, id)
	}
}

func TestRequestGenerationSendsAntiRepetitionContext(t *testing.T) {
	db := openTestDB(t)
	db.AppendHistoryEntry("u1", "old-1", "First topic", nil)
	db.AppendHistoryEntry("u1", "old-2", "Second topic", nil)

	sender := &fakeSender{}
	coord := NewCoordinator(db, sender, 0)
	if _, err := coord.RequestGeneration(context.Background(), "u1", testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := sender.lastCall()
	if len(call.HistorySummaries) != 2 {
		t.Fatalf("expected 2 history summaries, got %d", len(call.HistorySummaries))
	}
	if call.HistorySummaries[0] != "Second topic" {
		t.Errorf("expected most recent summary first, got %q", call.HistorySummaries[0])
	}
}

func TestRequestGenerationBoundsAntiRepetitionContext(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 3; i++ {
		db.AppendHistoryEntry("u1", fmt.Sprintf("old-%d", i), fmt.Sprintf("Topic %d", i), nil)
	}

	sender := &fakeSender{}
	coord := NewCoordinator(db, sender, 2)
	if _, err := coord.RequestGeneration(context.Background(), "u1", testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := sender.lastCall()
	if len(call.HistorySummaries) != 2 {
		t.Fatalf("expected 2 history summaries with a limit of 2, got %d", len(call.HistorySummaries))
	}
	if call.HistorySummaries[0] != "Topic 2" {
		t.Errorf("expected most recent summary first, got %q", call.HistorySummaries[0])
	}
}

func TestRequestGenerationSingleFlight(t *testing.T) {
	db := openTestDB(t)
	sender := &fakeSender{}
	coord := NewCoordinator(db, sender, 0)

	if _, err := coord.RequestGeneration(context.Background(), "u1", testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := coord.RequestGeneration(context.Background(), "u1", testProfile())
	if !errors.Is(err, ErrAlreadyInFlight) {
		t.Fatalf("expected ErrAlreadyInFlight, got %v", err)
	}
	if sender.callCount() != 1 {
		t.Errorf("expected no second webhook call, got %d", sender.callCount())
	}
}

func TestRequestGenerationIndependentUsers(t *testing.T) {
	db := openTestDB(t)
	sender := &fakeSender{}
	coord := NewCoordinator(db, sender, 0)

	if _, err := coord.RequestGeneration(context.Background(), "u1", testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := coord.RequestGeneration(context.Background(), "u2", testProfile()); err != nil {
		t.Fatalf("expected second user to be unaffected, got %v", err)
	}
}

func TestRequestGenerationWebhookFailure(t *testing.T) {
	db := openTestDB(t)
	sender := &fakeSender{err: errors.New("connection refused")}
	coord := NewCoordinator(db, sender, 0)

	_, err := coord.RequestGeneration(context.Background(), "u1", testProfile())
	if !errors.Is(err, ErrWebhook) {
		t.Fatalf("expected ErrWebhook, got %v", err)
	}

	pending, _ := db.PendingRequest("u1")
	if pending != "" {
		t.Errorf("expected pending marker cleared after webhook failure, got %q", pending)
	}

	status, _ := coord.Session("u1").Snapshot()
	if status != StatusFailed {
		t.Errorf("expected failed session, got %s", status)
	}

	// The marker is clear, so an immediate retry must be allowed.
	sender.err = nil
	if _, err := coord.RequestGeneration(context.Background(), "u1", testProfile()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestAwaitContextCancelled(t *testing.T) {
	db := openTestDB(t)
	coord := NewCoordinator(db, &fakeSender{}, 0)
	if _, err := coord.RequestGeneration(context.Background(), "u1", testProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Await(ctx, coord.Session("u1"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStatusStrings(t *testing.T) {
	cases := map[Status]string{
		StatusIdle:      "idle",
		StatusPending:   "pending",
		StatusCompleted: "completed",
		StatusFailed:    "failed",
		StatusTimedOut:  "timedOut",
	}
	for status, want := range cases {
		if status.String() != want {
			t.Errorf("expected %q, got %q", want, status.String())
		}
	}
	if StatusPending.Terminal() || StatusIdle.Terminal() {
		t.Error("expected idle and pending to be non-terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() || !StatusTimedOut.Terminal() {
		t.Error("expected resolved statuses to be terminal")
	}
}
