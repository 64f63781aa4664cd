package store

// SetSaved sets the saved state for (user, request). The saved_content
// record and the history entry's saved column are updated in one
// transaction so the two flags can never drift apart.
func (db *DB) SetSaved(userID, requestID string, saved bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	if saved {
		_, err = tx.Exec(
			`INSERT OR REPLACE INTO saved_content (user_id, request_id) VALUES (?, ?)`,
			userID, requestID,
		)
	} else {
		_, err = tx.Exec(
			`DELETE FROM saved_content WHERE user_id = ? AND request_id = ?`,
			userID, requestID,
		)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	flag := 0
	if saved {
		flag = 1
	}
	if _, err := tx.Exec(
		`UPDATE content_history SET saved = ? WHERE user_id = ? AND request_id = ?`,
		flag, userID, requestID,
	); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// IsSaved reports whether a saved record exists for (user, request).
func (db *DB) IsSaved(userID, requestID string) (bool, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM saved_content WHERE user_id = ? AND request_id = ?`,
		userID, requestID,
	).Scan(&n)
	return n > 0, err
}

// SavedCount returns the number of saved records for a user.
func (db *DB) SavedCount(userID string) (int, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM saved_content WHERE user_id = ?`, userID,
	).Scan(&n)
	return n, err
}

// ListSaved returns the saved history entries for a user,
// most recently saved first.
func (db *DB) ListSaved(userID string) ([]HistoryEntry, error) {
	rows, err := db.conn.Query(
		`SELECT h.id, h.user_id, h.request_id, h.topic_summary, h.category, h.generated_at, h.viewed, h.viewed_at, h.saved
		FROM saved_content s
		JOIN content_history h ON h.user_id = s.user_id AND h.request_id = s.request_id
		WHERE s.user_id = ?
		ORDER BY s.saved_at DESC, h.id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHistoryEntries(rows)
}
