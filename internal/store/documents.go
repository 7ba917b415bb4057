package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evertsson/medjournal/internal/journal"
)

// SaveDocument persists one parsed export for a profile: the document row
// with its raw text plus the entries projection, in a single transaction.
// Either everything lands or nothing does.
func (s *SQLiteStore) SaveDocument(ctx context.Context, profileID int64, sourceFile, rawText string, doc *journal.Document) (int64, error) {
	if doc == nil {
		return 0, fmt.Errorf("document cannot be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO documents (profile_id, source_file, format_version, source, created_label, raw_text, entry_count, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profileID, sourceFile, doc.Metadata.FormatVersion, doc.Metadata.Source,
		doc.Metadata.CreatedAt, rawText, len(doc.Entries), now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}
	docID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting document id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (document_id, position, entry_id, date, time, category, type, status, provider_name, summary, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("preparing entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range doc.Entries {
		var providerName, summary string
		if e.Provider != nil {
			providerName = e.Provider.Name
		}
		if e.Content != nil {
			summary = e.Content.Summary
		}
		tagsJSON := marshalTags(e.Tags)

		if _, err := stmt.ExecContext(ctx,
			docID, i, e.ID, e.Date, e.Time, e.Category, e.Type, e.Status,
			providerName, summary, tagsJSON,
		); err != nil {
			return 0, fmt.Errorf("inserting entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing document: %w", err)
	}
	return docID, nil
}

// LatestDocument returns the most recently imported document for a profile,
// or nil when the profile has none.
func (s *SQLiteStore) LatestDocument(ctx context.Context, profileID int64) (*DocumentRow, error) {
	d := &DocumentRow{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, profile_id, source_file, format_version, source, created_label, raw_text, entry_count, imported_at
		 FROM documents WHERE profile_id = ?
		 ORDER BY imported_at DESC, id DESC LIMIT 1`, profileID,
	).Scan(&d.ID, &d.ProfileID, &d.SourceFile, &d.FormatVersion, &d.Source,
		&d.CreatedLabel, &d.RawText, &d.EntryCount, &d.ImportedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest document for profile %d: %w", profileID, err)
	}
	return d, nil
}

// ListEntries returns entry projections matching the query, newest date
// first, entries without a usable date last.
func (s *SQLiteStore) ListEntries(ctx context.Context, q EntryQuery) ([]*EntryRow, error) {
	if q.Limit <= 0 {
		q.Limit = 100
	}

	query := `SELECT e.id, e.document_id, e.position, e.entry_id, e.date, e.time,
	                 e.category, e.type, e.status, e.provider_name, e.summary, e.tags
	          FROM entries e
	          JOIN documents d ON d.id = e.document_id
	          WHERE 1=1`
	var args []interface{}

	if q.ProfileID != 0 {
		query += " AND d.profile_id = ?"
		args = append(args, q.ProfileID)
	}
	if q.Category != "" {
		query += " AND e.category = ?"
		args = append(args, q.Category)
	}
	if q.Provider != "" {
		query += " AND e.provider_name = ?"
		args = append(args, q.Provider)
	}
	if q.From != "" {
		query += " AND e.date >= ?"
		args = append(args, q.From)
	}
	if q.To != "" {
		query += " AND e.date <= ?"
		args = append(args, q.To)
	}

	query += ` ORDER BY CASE WHEN e.date = '' THEN 1 ELSE 0 END, e.date DESC, e.position ASC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []*EntryRow
	for rows.Next() {
		e := &EntryRow{}
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Position, &e.EntryID, &e.Date, &e.Time,
			&e.Category, &e.Type, &e.Status, &e.ProviderName, &e.Summary, &tagsJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Tags = unmarshalTags(tagsJSON)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

func marshalTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}
	return tags
}
