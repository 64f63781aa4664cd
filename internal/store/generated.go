package store

import (
	"database/sql"
	"encoding/json"
)

// UpsertGeneratedContent writes a generation result record, replacing any
// prior record for the same request id. This is the worker-callback write
// path; everything else only reads these records.
func (db *DB) UpsertGeneratedContent(rec GeneratedContent) error {
	var sources *string
	if len(rec.Sources) > 0 {
		data, err := json.Marshal(rec.Sources)
		if err != nil {
			return err
		}
		s := string(data)
		sources = &s
	}

	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO generated_content
		(request_id, user_id, status, body, topic_summary, category, reading_minutes, sources, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.UserID, rec.Status, rec.Body, rec.TopicSummary,
		rec.Category, rec.ReadingMinutes, sources, rec.Error,
	)
	return err
}

// GetGeneratedContent returns the result record for a request id,
// or nil when the worker has not written one yet.
func (db *DB) GetGeneratedContent(userID, requestID string) (*GeneratedContent, error) {
	row := db.conn.QueryRow(
		`SELECT request_id, user_id, status, body, topic_summary, category, reading_minutes, sources, error, generated_at
		FROM generated_content WHERE user_id = ? AND request_id = ?`, userID, requestID,
	)

	var rec GeneratedContent
	var sources *string
	err := row.Scan(&rec.RequestID, &rec.UserID, &rec.Status, &rec.Body, &rec.TopicSummary,
		&rec.Category, &rec.ReadingMinutes, &sources, &rec.Error, &rec.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if sources != nil && *sources != "" {
		if err := json.Unmarshal([]byte(*sources), &rec.Sources); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
