package viewing

import (
	"log"
	"sync"
	"time"
)

// DefaultConfirmDelay is how long content must stay open before it counts
// as read.
const DefaultConfirmDelay = 5 * time.Second

// MarkStore records the viewed flag for a history entry.
type MarkStore interface {
	MarkViewed(entryID int64) error
}

// Tracker marks content as viewed only after it has stayed continuously
// open for the confirmation delay. A quick open-and-close never counts as a
// read, and a request id is marked at most once per session.
type Tracker struct {
	store MarkStore
	delay time.Duration

	mu     sync.Mutex
	gen    int
	timer  *time.Timer
	marked map[string]bool
}

// NewTracker creates a tracker. A zero delay falls back to the default.
func NewTracker(store MarkStore, delay time.Duration) *Tracker {
	if delay <= 0 {
		delay = DefaultConfirmDelay
	}
	return &Tracker{store: store, delay: delay, marked: make(map[string]bool)}
}

// Open starts the confirmation timer for a history entry. Opening different
// content cancels any previous timer first. Content without a request id,
// or a request id already marked this session, arms no timer.
func (t *Tracker) Open(entryID int64, requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()

	if requestID == "" || entryID == 0 || t.marked[requestID] {
		return
	}

	gen := t.gen
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen, entryID, requestID) })
}

// Close cancels the pending confirmation, if any. Closing before the delay
// elapses records nothing.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Clear closes the content and forgets which request ids were marked, so a
// later independent viewing session can mark them again.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.marked = make(map[string]bool)
}

// cancelLocked invalidates any armed timer. The generation counter makes a
// timer that already fired but has not run yet a guaranteed no-op.
func (t *Tracker) cancelLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) fire(gen int, entryID int64, requestID string) {
	t.mu.Lock()
	if t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.marked[requestID] = true
	t.mu.Unlock()

	// Best-effort: a failed mark never blocks the reading flow.
	if err := t.store.MarkViewed(entryID); err != nil {
		log.Printf("Marking entry %d viewed: %v", entryID, err)
	}
}
