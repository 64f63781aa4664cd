package store

import "database/sql"

// SetPendingRequest records the single outstanding request marker for a
// user. Only the generation coordinator writes this marker; only the
// completion watcher clears it on resolution.
func (db *DB) SetPendingRequest(userID, requestID string) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO pending_requests (user_id, request_id) VALUES (?, ?)`,
		userID, requestID,
	)
	return err
}

// PendingRequest returns the outstanding request id for a user,
// or "" when no request is pending.
func (db *DB) PendingRequest(userID string) (string, error) {
	var requestID string
	err := db.conn.QueryRow(
		`SELECT request_id FROM pending_requests WHERE user_id = ?`, userID,
	).Scan(&requestID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return requestID, nil
}

// ClearPendingRequest removes the marker only while it still names
// requestID, so a stale watcher can never clear a newer request's marker.
func (db *DB) ClearPendingRequest(userID, requestID string) error {
	_, err := db.conn.Exec(
		`DELETE FROM pending_requests WHERE user_id = ? AND request_id = ?`,
		userID, requestID,
	)
	return err
}

// InsertRequestAudit writes the "content requested" marker for a request id.
// Idempotent: re-recording the same request id is a no-op.
func (db *DB) InsertRequestAudit(userID, requestID string) error {
	_, err := db.conn.Exec(
		`INSERT OR IGNORE INTO request_audit (request_id, user_id) VALUES (?, ?)`,
		requestID, userID,
	)
	return err
}

// HasRequestAudit reports whether a request id was ever recorded.
func (db *DB) HasRequestAudit(requestID string) (bool, error) {
	var n int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM request_audit WHERE request_id = ?`, requestID,
	).Scan(&n)
	return n > 0, err
}
