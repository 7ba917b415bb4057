package store

import "fmt"

// migrate creates all tables if they don't exist.
func (s *SQLiteStore) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per imported export. raw_text is the original document so
		// it can be re-parsed later; the parsed model is never persisted.
		`CREATE TABLE IF NOT EXISTS documents (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id     INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			source_file    TEXT,
			format_version TEXT,
			source         TEXT,
			created_label  TEXT,
			raw_text       TEXT NOT NULL,
			entry_count    INTEGER NOT NULL,
			imported_at    DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Flat projection of entries for timeline/filter queries. entry_id
		// carries no UNIQUE constraint: the scraper emits duplicates and
		// they are structurally legal.
		`CREATE TABLE IF NOT EXISTS entries (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id   INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			position      INTEGER NOT NULL,
			entry_id      TEXT NOT NULL,
			date          TEXT,
			time          TEXT,
			category      TEXT,
			type          TEXT,
			status        TEXT,
			provider_name TEXT,
			summary       TEXT,
			tags          TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_documents_profile ON documents(profile_id, imported_at)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_document ON entries(document_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(category)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', '1')`,
	); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}
	return nil
}
