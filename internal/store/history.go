package store

import (
	"database/sql"
	"time"
)

// summaryMaxChars is the stored length limit for topic summaries.
const summaryMaxChars = 100

// AppendHistoryEntry records one generated topic in the anti-repetition log.
// The topic summary is truncated to 100 characters and timestamps are
// assigned by the store, not the caller's clock. Returns the new entry id.
func (db *DB) AppendHistoryEntry(userID, requestID, topicSummary string, category *string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO content_history (user_id, request_id, topic_summary, category)
		VALUES (?, ?, ?, ?)`,
		userID, requestID, truncateSummary(topicSummary), category,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= summaryMaxChars {
		return s
	}
	return string(runes[:summaryMaxChars])
}

// FetchRecentSummaries returns up to max topic summaries, most recent first.
// This is the anti-repetition context sent with every generation request.
func (db *DB) FetchRecentSummaries(userID string, max int) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT topic_summary FROM content_history WHERE user_id = ?
		ORDER BY generated_at DESC, id DESC LIMIT ?`, userID, max,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// FetchFullHistory returns up to max full history entries, most recent first.
func (db *DB) FetchFullHistory(userID string, max int) ([]HistoryEntry, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, request_id, topic_summary, category, generated_at, viewed, viewed_at, saved
		FROM content_history WHERE user_id = ?
		ORDER BY generated_at DESC, id DESC LIMIT ?`, userID, max,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistoryEntries(rows)
}

// GetHistoryEntryByRequest returns the history entry for a request id,
// or nil when none exists.
func (db *DB) GetHistoryEntryByRequest(userID, requestID string) (*HistoryEntry, error) {
	row := db.conn.QueryRow(
		`SELECT id, user_id, request_id, topic_summary, category, generated_at, viewed, viewed_at, saved
		FROM content_history WHERE user_id = ? AND request_id = ?`, userID, requestID,
	)
	e, err := scanHistoryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// MarkViewed sets the viewed flag and stamps viewed_at with server time.
// Idempotent: a second call never overwrites the first timestamp.
func (db *DB) MarkViewed(entryID int64) error {
	_, err := db.conn.Exec(
		`UPDATE content_history SET viewed = 1, viewed_at = datetime('now')
		WHERE id = ? AND viewed = 0`, entryID,
	)
	return err
}

// WeeklyReadCount counts entries read since the most recent Sunday 00:00
// local time. The read timestamp is viewed_at, falling back to generated_at
// for legacy entries that lack it. Recomputed from the store on every call.
func (db *DB) WeeklyReadCount(userID string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM content_history
		WHERE user_id = ? AND viewed = 1 AND COALESCE(viewed_at, generated_at) >= ?`,
		userID, weekCutoff(time.Now()),
	).Scan(&n)
	return n, err
}

// ClearHistory deletes all history entries for a user. Returns the count deleted.
func (db *DB) ClearHistory(userID string) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM content_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanHistoryEntries(rows *sql.Rows) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var viewed, saved int
		if err := rows.Scan(&e.ID, &e.UserID, &e.RequestID, &e.TopicSummary, &e.Category,
			&e.GeneratedAt, &viewed, &e.ViewedAt, &saved); err != nil {
			return nil, err
		}
		e.Viewed = viewed != 0
		e.Saved = saved != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanHistoryEntry(row *sql.Row) (*HistoryEntry, error) {
	var e HistoryEntry
	var viewed, saved int
	if err := row.Scan(&e.ID, &e.UserID, &e.RequestID, &e.TopicSummary, &e.Category,
		&e.GeneratedAt, &viewed, &e.ViewedAt, &saved); err != nil {
		return nil, err
	}
	e.Viewed = viewed != 0
	e.Saved = saved != 0
	return &e, nil
}
