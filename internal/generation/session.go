package generation

import (
	"sync"

	"learnloop/internal/store"
)

// Status is the process-local state of a user's generation request.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusCompleted
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timedOut"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible for the
// current request.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// Session holds the request lifecycle state for one user. Every transition
// goes through a compare-and-swap style method keyed by request id, so at
// most one terminal transition is ever applied per request, no matter how
// many watchers observe the store.
type Session struct {
	mu        sync.Mutex
	userID    string
	status    Status
	requestID string
	record    *store.GeneratedContent
	err       error
	done      chan struct{}
}

// NewSession creates an idle session for a user.
func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

// UserID returns the owning user.
func (s *Session) UserID() string {
	return s.userID
}

// Begin transitions to pending for a new request id. It fails with
// ErrAlreadyInFlight while a prior request is still pending; a resolved or
// idle session may always begin a new request.
func (s *Session) Begin(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusPending {
		return ErrAlreadyInFlight
	}
	s.status = StatusPending
	s.requestID = requestID
	s.record = nil
	s.err = nil
	s.done = make(chan struct{})
	return nil
}

// Complete claims the terminal transition for a completed request.
// Returns false when the session is no longer pending for requestID.
func (s *Session) Complete(requestID string, rec *store.GeneratedContent) (publish func(), ok bool) {
	return s.finish(requestID, StatusCompleted, rec, nil)
}

// Fail claims the terminal transition for a failed request.
// Returns false when the session is no longer pending for requestID.
func (s *Session) Fail(requestID string, err error) (publish func(), ok bool) {
	return s.finish(requestID, StatusFailed, nil, err)
}

// TimeOut claims the terminal transition for a timed-out request.
// Returns false when the session is no longer pending for requestID.
func (s *Session) TimeOut(requestID string) (publish func(), ok bool) {
	return s.finish(requestID, StatusTimedOut, nil, ErrTimedOut)
}

// finish claims the terminal transition without waking Await-ers: the
// resolving goroutine must run the resolution's side effects (clearing the
// pending marker, appending the history entry) and only then call publish.
// Waiters therefore never observe a resolved request whose effects are not
// yet in the store. The publish func closes the done channel captured at
// claim time, so a Begin racing in between cannot have its fresh channel
// closed by a prior request's publish.
func (s *Session) finish(requestID string, status Status, rec *store.GeneratedContent, err error) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPending || s.requestID != requestID {
		return nil, false
	}
	s.status = status
	s.record = rec
	s.err = err
	done := s.done
	return func() { close(done) }, true
}

// Snapshot returns the current status and request id.
func (s *Session) Snapshot() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.requestID
}

// Record returns the resolving record, or nil before completion.
func (s *Session) Record() *store.GeneratedContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Err returns the resolving error, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done returns a channel closed once the current request's resolution is
// published, which is after its store side effects have been applied. A
// session with no request in flight returns an already-closed channel.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}
