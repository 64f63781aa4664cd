package store

import (
	"database/sql"
	"strings"
)

// RecentArticleCapacity is the maximum number of recent articles kept per
// user. Readers always apply this limit, so a momentary over-capacity state
// between insert and trim is never observable.
const RecentArticleCapacity = 3

// AddRecentArticle stores a finished article. Re-reading an article whose
// title is already stored is a no-op and returns 0 without reordering.
// After inserting, surplus oldest entries beyond the capacity are deleted
// in a single transaction.
func (db *DB) AddRecentArticle(userID, body string) (int64, error) {
	title := ArticleTitle(body)

	var existing int64
	err := db.conn.QueryRow(
		`SELECT id FROM recent_articles WHERE user_id = ? AND title = ?`, userID, title,
	).Scan(&existing)
	if err == nil {
		return 0, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := db.conn.Exec(
		`INSERT INTO recent_articles (user_id, title, content_body) VALUES (?, ?, ?)`,
		userID, title, body,
	)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := db.trimRecentArticles(userID); err != nil {
		return 0, err
	}
	return id, nil
}

// trimRecentArticles deletes the oldest entries beyond the capacity.
// All-or-nothing: the surplus is removed inside one transaction.
func (db *DB) trimRecentArticles(userID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}

	rows, err := tx.Query(
		`SELECT id FROM recent_articles WHERE user_id = ? ORDER BY read_at ASC, id ASC`, userID,
	)
	if err != nil {
		tx.Rollback()
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			tx.Rollback()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		tx.Rollback()
		return err
	}
	rows.Close()

	if len(ids) <= RecentArticleCapacity {
		tx.Rollback()
		return nil
	}

	for _, id := range ids[:len(ids)-RecentArticleCapacity] {
		if _, err := tx.Exec(`DELETE FROM recent_articles WHERE id = ?`, id); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GetRecentArticles returns up to the capacity of recent articles,
// most recently read first.
func (db *DB) GetRecentArticles(userID string) ([]RecentArticle, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, title, content_body, read_at, created_at
		FROM recent_articles WHERE user_id = ?
		ORDER BY read_at DESC, id DESC LIMIT ?`, userID, RecentArticleCapacity,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []RecentArticle
	for rows.Next() {
		var a RecentArticle
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.ContentBody, &a.ReadAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ClearRecentArticles deletes all recent articles for a user.
// Returns the count deleted.
func (db *DB) ClearRecentArticles(userID string) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM recent_articles WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ArticleTitle derives the duplicate-detection title from an article body:
// the first non-empty line, with markdown heading markers stripped.
func ArticleTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" {
			return line
		}
	}
	return strings.TrimSpace(body)
}
