package generation

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"learnloop/internal/store"
	"learnloop/internal/webhook"
)

// DefaultMaxHistorySummaries caps the anti-repetition context sent per
// request when the config does not say otherwise.
const DefaultMaxHistorySummaries = 20

// Profile is the user profile sent with every generation request.
type Profile struct {
	DisplayName  string
	Categories   []string
	DailyMinutes int
}

// Store is the document-store capability the request lifecycle needs.
// *store.DB satisfies it.
type Store interface {
	PendingRequest(userID string) (string, error)
	SetPendingRequest(userID, requestID string) error
	ClearPendingRequest(userID, requestID string) error
	InsertRequestAudit(userID, requestID string) error
	FetchRecentSummaries(userID string, max int) ([]string, error)
	GetGeneratedContent(userID, requestID string) (*store.GeneratedContent, error)
	AppendHistoryEntry(userID, requestID, topicSummary string, category *string) (int64, error)
}

// Sender accepts a generation job. A nil error means accepted, not completed.
type Sender interface {
	Send(ctx context.Context, r webhook.Request) error
}

// Coordinator enforces the single-flight request lifecycle: at most one
// pending generation request per user. The pending marker is written before
// the webhook call so the rest of the client recognizes the outstanding
// request immediately; only the completion watcher clears it on resolution.
type Coordinator struct {
	store        Store
	sender       Sender
	maxSummaries int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewCoordinator creates a coordinator over the given store and webhook
// sender. maxSummaries bounds the anti-repetition context per request; zero
// or negative falls back to the default.
func NewCoordinator(st Store, sender Sender, maxSummaries int) *Coordinator {
	if maxSummaries <= 0 {
		maxSummaries = DefaultMaxHistorySummaries
	}
	return &Coordinator{
		store:        st,
		sender:       sender,
		maxSummaries: maxSummaries,
		sessions:     make(map[string]*Session),
	}
}

// Session returns the lifecycle state container for a user, creating it on
// first use.
func (c *Coordinator) Session(userID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[userID]
	if !ok {
		s = NewSession(userID)
		c.sessions[userID] = s
	}
	return s
}

// RequestGeneration triggers one generation request for a user and returns
// its request id. The webhook acknowledgement only means the job was
// accepted; completion arrives later through the watcher. On webhook failure
// the pending marker is cleared and the caller may re-invoke; nothing is
// retried automatically.
func (c *Coordinator) RequestGeneration(ctx context.Context, userID string, profile Profile) (string, error) {
	session := c.Session(userID)

	pending, err := c.store.PendingRequest(userID)
	if err != nil {
		return "", fmt.Errorf("checking pending marker: %w", err)
	}
	if pending != "" {
		return "", ErrAlreadyInFlight
	}

	summaries, err := c.store.FetchRecentSummaries(userID, c.maxSummaries)
	if err != nil {
		// Anti-repetition context is an optimization, not a correctness
		// requirement; generation proceeds without it.
		log.Printf("History read failed, requesting without anti-repetition context: %v", err)
		summaries = nil
	}

	requestID := uuid.NewString()
	if err := session.Begin(requestID); err != nil {
		return "", err
	}

	if err := c.store.SetPendingRequest(userID, requestID); err != nil {
		if publish, ok := session.Fail(requestID, err); ok {
			publish()
		}
		return "", fmt.Errorf("recording pending marker: %w", err)
	}
	if err := c.store.InsertRequestAudit(userID, requestID); err != nil {
		log.Printf("Request audit write failed for %s: %v", requestID, err)
	}

	err = c.sender.Send(ctx, webhook.Request{
		UserID:           userID,
		DisplayName:      profile.DisplayName,
		Categories:       profile.Categories,
		DailyMinutes:     profile.DailyMinutes,
		HistorySummaries: summaries,
	})
	if err != nil {
		if clearErr := c.store.ClearPendingRequest(userID, requestID); clearErr != nil {
			log.Printf("Clearing pending marker after webhook failure: %v", clearErr)
		}
		if publish, ok := session.Fail(requestID, fmt.Errorf("%w: %v", ErrWebhook, err)); ok {
			publish()
		}
		return "", fmt.Errorf("%w: %v", ErrWebhook, err)
	}

	return requestID, nil
}

// Await blocks until the session's current request reaches a terminal state
// or the context is cancelled, and returns the final status. For failed and
// timed-out requests the resolving error is returned alongside the status.
func Await(ctx context.Context, session *Session) (Status, error) {
	select {
	case <-ctx.Done():
		status, _ := session.Snapshot()
		return status, ctx.Err()
	case <-session.Done():
		status, _ := session.Snapshot()
		return status, session.Err()
	}
}
