package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS generated_content (
    request_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL,
    body TEXT,
    topic_summary TEXT,
    category TEXT,
    reading_minutes INTEGER DEFAULT 0,
    sources TEXT,
    error TEXT,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS content_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    request_id TEXT NOT NULL,
    topic_summary TEXT NOT NULL,
    category TEXT,
    generated_at TEXT DEFAULT (datetime('now')),
    viewed INTEGER DEFAULT 0,
    viewed_at TEXT,
    saved INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS recent_articles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    content_body TEXT NOT NULL,
    read_at TEXT DEFAULT (datetime('now')),
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS saved_content (
    user_id TEXT NOT NULL,
    request_id TEXT NOT NULL,
    saved_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (user_id, request_id)
);

CREATE TABLE IF NOT EXISTS pending_requests (
    user_id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    requested_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS request_audit (
    request_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    requested_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS source_excerpts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    url TEXT NOT NULL,
    title TEXT,
    excerpt TEXT,
    fetched_at TEXT DEFAULT (datetime('now')),
    UNIQUE (request_id, url)
);

CREATE INDEX IF NOT EXISTS idx_generated_content_user ON generated_content(user_id);
CREATE INDEX IF NOT EXISTS idx_content_history_user ON content_history(user_id, generated_at);
CREATE INDEX IF NOT EXISTS idx_recent_articles_user ON recent_articles(user_id);
CREATE INDEX IF NOT EXISTS idx_saved_content_user ON saved_content(user_id);
CREATE INDEX IF NOT EXISTS idx_source_excerpts_request ON source_excerpts(request_id);
`)
			return err
		},
	},
}
