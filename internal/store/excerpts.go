package store

// UpsertSourceExcerpt stores the readable excerpt fetched from a cited
// source URL, replacing any prior excerpt for the same (request, url) pair.
func (db *DB) UpsertSourceExcerpt(requestID, url string, title, excerpt *string) error {
	_, err := db.conn.Exec(
		`INSERT OR REPLACE INTO source_excerpts (request_id, url, title, excerpt) VALUES (?, ?, ?, ?)`,
		requestID, url, title, excerpt,
	)
	return err
}

// GetSourceExcerpts returns the stored excerpts for a request, in the order
// they were fetched.
func (db *DB) GetSourceExcerpts(requestID string) ([]SourceExcerpt, error) {
	rows, err := db.conn.Query(
		`SELECT id, request_id, url, title, excerpt, fetched_at
		FROM source_excerpts WHERE request_id = ? ORDER BY id ASC`, requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var excerpts []SourceExcerpt
	for rows.Next() {
		var e SourceExcerpt
		if err := rows.Scan(&e.ID, &e.RequestID, &e.URL, &e.Title, &e.Excerpt, &e.FetchedAt); err != nil {
			return nil, err
		}
		excerpts = append(excerpts, e)
	}
	return excerpts, rows.Err()
}
