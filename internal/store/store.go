package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection holding the per-user document
// collections: generated content, content history, recent articles, saved
// content, the pending-request marker, and the request audit log.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// GetStats returns aggregate statistics for a user.
func (db *DB) GetStats(userID string) (*Stats, error) {
	stats := &Stats{}

	row := db.conn.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(viewed), 0) FROM content_history WHERE user_id = ?`, userID,
	)
	if err := row.Scan(&stats.HistoryEntries, &stats.ViewedEntries); err != nil {
		return nil, err
	}

	weekly, err := db.WeeklyReadCount(userID)
	if err != nil {
		return nil, err
	}
	stats.WeeklyRead = weekly

	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM recent_articles WHERE user_id = ?`, userID,
	).Scan(&stats.RecentArticles); err != nil {
		return nil, err
	}

	saved, err := db.SavedCount(userID)
	if err != nil {
		return nil, err
	}
	stats.SavedArticles = saved

	pending, err := db.PendingRequest(userID)
	if err != nil {
		return nil, err
	}
	stats.PendingRequest = pending

	return stats, nil
}
