package store

// Generated-content record statuses written by the external worker. Any
// other status is treated as non-terminal and keeps the watcher waiting.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Terminal reports whether a generated-content status resolves a request.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// GeneratedContent is the result record written by the external generation
// worker, keyed by request id. This side only ever reads it.
type GeneratedContent struct {
	RequestID      string
	UserID         string
	Status         string
	Body           *string
	TopicSummary   *string
	Category       *string
	ReadingMinutes int
	Sources        []string
	Error          *string
	GeneratedAt    *string
}

// HistoryEntry is one line of the anti-repetition history log.
type HistoryEntry struct {
	ID           int64
	UserID       string
	RequestID    string
	TopicSummary string
	Category     *string
	GeneratedAt  *string
	Viewed       bool
	ViewedAt     *string
	Saved        bool
}

// RecentArticle is a fully read article kept for quick re-reading.
type RecentArticle struct {
	ID          int64
	UserID      string
	Title       string
	ContentBody string
	ReadAt      *string
	CreatedAt   *string
}

// SourceExcerpt is a readable excerpt fetched from a URL cited by a
// generated article.
type SourceExcerpt struct {
	ID        int64
	RequestID string
	URL       string
	Title     *string
	Excerpt   *string
	FetchedAt *string
}

// Stats contains aggregate per-user statistics.
type Stats struct {
	HistoryEntries int
	ViewedEntries  int
	WeeklyRead     int
	RecentArticles int
	SavedArticles  int
	PendingRequest string
}
