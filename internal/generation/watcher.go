package generation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"learnloop/internal/store"
)

const (
	// DefaultPollInterval is how often the watcher checks the document
	// store for the worker's result record.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultWatchTimeout bounds how long a request may stay pending
	// before it resolves as timed out.
	DefaultWatchTimeout = 60 * time.Second
)

// Watcher observes the document store for the result record of a pending
// request. The store has no push channel, so watching is short-interval
// polling with a hard timeout; the poll ticker and the timeout timer are
// armed together and released together on every exit path.
type Watcher struct {
	store    Store
	interval time.Duration
	timeout  time.Duration
}

// NewWatcher creates a watcher. Zero durations fall back to the defaults.
func NewWatcher(st Store, interval, timeout time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultWatchTimeout
	}
	return &Watcher{store: st, interval: interval, timeout: timeout}
}

// Subscription is a disposable watch handle.
type Subscription struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Stop disposes the subscription and waits for the watch goroutine, its
// ticker, and its timeout timer to be released. Idempotent; stopping an
// already-resolved subscription is a no-op.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Watch observes the store for the session's pending request until a
// terminal record appears, the timeout elapses, the context is cancelled,
// or the subscription is stopped. Watching a session with nothing pending
// returns an already-finished subscription; re-watching a session whose
// request was resolved elsewhere never double-resolves it.
func (w *Watcher) Watch(ctx context.Context, session *Session) *Subscription {
	sub := &Subscription{stop: make(chan struct{}), done: make(chan struct{})}

	status, requestID := session.Snapshot()
	if status != StatusPending {
		close(sub.done)
		return sub
	}

	go w.run(ctx, session, requestID, sub)
	return sub
}

func (w *Watcher) run(ctx context.Context, session *Session, requestID string, sub *Subscription) {
	defer close(sub.done)

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case <-deadline.C:
			if publish, ok := session.TimeOut(requestID); ok {
				w.clearMarker(session.UserID(), requestID)
				log.Printf("Generation request %s timed out after %s", requestID, w.timeout)
				publish()
			}
			return
		case <-ticker.C:
			rec, err := w.store.GetGeneratedContent(session.UserID(), requestID)
			if err != nil {
				log.Printf("Polling generated content for %s: %v", requestID, err)
				continue
			}
			if rec == nil || !store.Terminal(rec.Status) {
				continue
			}
			w.resolve(session, requestID, rec)
			return
		}
	}
}

// resolve applies the terminal record to the session. The session's
// compare-and-swap transition guarantees at most one terminal transition per
// request id; a record observed after that is ignored. Publishing happens
// only after the marker is cleared and, on completion, the history entry is
// written, so a caller returning from Await can immediately re-request and
// sees the finished topic in its anti-repetition context.
func (w *Watcher) resolve(session *Session, requestID string, rec *store.GeneratedContent) {
	switch rec.Status {
	case store.StatusCompleted:
		publish, ok := session.Complete(requestID, rec)
		if !ok {
			return
		}
		w.clearMarker(session.UserID(), requestID)

		summary := ""
		if rec.TopicSummary != nil {
			summary = *rec.TopicSummary
		}
		if _, err := w.store.AppendHistoryEntry(session.UserID(), requestID, summary, rec.Category); err != nil {
			log.Printf("Appending history entry for %s: %v", requestID, err)
		}
		publish()
	case store.StatusError:
		reason := "generation failed"
		if rec.Error != nil && *rec.Error != "" {
			reason = *rec.Error
		}
		publish, ok := session.Fail(requestID, fmt.Errorf("%w: %s", ErrGeneration, reason))
		if !ok {
			return
		}
		w.clearMarker(session.UserID(), requestID)
		publish()
	}
}

func (w *Watcher) clearMarker(userID, requestID string) {
	if err := w.store.ClearPendingRequest(userID, requestID); err != nil {
		log.Printf("Clearing pending marker for %s: %v", requestID, err)
	}
}
