// Package store provides the SQLite storage layer for imported journals.
//
// One database file holds every patient profile, the raw text of each
// imported export (kept so documents can be re-parsed after pipeline fixes),
// and a flat projection of entries for timeline and filter queries. The
// in-memory journal.Document stays the canonical model; the entries table is
// a convenience index over it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/evertsson/medjournal/internal/journal"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.medjournal/medjournal.db"

// Profile is one patient profile owning imported documents.
type Profile struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// DocumentRow is one imported export. RawText is the original (unrepaired)
// export text.
type DocumentRow struct {
	ID            int64
	ProfileID     int64
	SourceFile    string
	FormatVersion string
	Source        string
	CreatedLabel  string // metadata.created_at, stored as-is
	RawText       string
	EntryCount    int
	ImportedAt    time.Time
}

// EntryRow is the flat projection of one journal entry. Entry ids are not
// unique — the scraper double-submits — so lookups may return several rows.
type EntryRow struct {
	ID           int64
	DocumentID   int64
	Position     int
	EntryID      string
	Date         string
	Time         string
	Category     string
	Type         string
	Status       string
	ProviderName string
	Summary      string
	Tags         []string
}

// EntryQuery filters ListEntries. Date bounds compare lexicographically,
// which is correct for the ISO dates the exporter prefers; entries with an
// unknown date are excluded when a bound is set.
type EntryQuery struct {
	ProfileID int64
	Category  string
	Provider  string
	From      string
	To        string
	Limit     int
}

// Stats holds observability counters for the store.
type Stats struct {
	ProfileCount  int64
	DocumentCount int64
	EntryCount    int64
	DBSizeBytes   int64
}

// Config holds configuration for NewStore.
type Config struct {
	DBPath string
}

// Store defines the profile storage interface.
type Store interface {
	EnsureProfile(ctx context.Context, name string) (*Profile, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)

	SaveDocument(ctx context.Context, profileID int64, sourceFile, rawText string, doc *journal.Document) (int64, error)
	LatestDocument(ctx context.Context, profileID int64) (*DocumentRow, error)

	ListEntries(ctx context.Context, q EntryQuery) ([]*EntryRow, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the database and runs migrations.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg Config) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Stats returns store-wide counters.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM profiles", &st.ProfileCount},
		{"SELECT COUNT(*) FROM documents", &st.DocumentCount},
		{"SELECT COUNT(*) FROM entries", &st.EntryCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
	}
	if s.dbPath != ":memory:" {
		if info, err := os.Stat(s.dbPath); err == nil {
			st.DBSizeBytes = info.Size()
		}
	}
	return st, nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
