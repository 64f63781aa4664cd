package store

import (
	"database/sql"
	"fmt"
	"log"
)

// migrate applies any migrations the database has not seen yet. Applied
// state is tracked through PRAGMA user_version.
func migrate(conn *sql.DB) error {
	var current int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	// A database holding collections at user_version 0 predates version
	// tracking. Its schema is exactly migration 1, so stamp it as such
	// instead of re-running the DDL.
	if current == 0 {
		ok, err := hasCollections(conn)
		if err != nil {
			return err
		}
		if ok {
			log.Printf("stamping pre-versioning database as schema 1")
			if _, err := conn.Exec("PRAGMA user_version = 1"); err != nil {
				return fmt.Errorf("stamping schema version: %w", err)
			}
			current = 1
		}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Printf("applying migration %d: %s", m.Version, m.Description)

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// user_version cannot be set inside the transaction with
		// modernc/sqlite. A crash between commit and stamp is harmless:
		// the DDL is idempotent and simply re-runs.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}

// hasCollections reports whether the database already holds this module's
// tables, keyed on content_history as the oldest collection.
func hasCollections(conn *sql.DB) (bool, error) {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='content_history'",
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("inspecting schema: %w", err)
	}
	return count > 0, nil
}
