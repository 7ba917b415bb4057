package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// EnsureProfile returns the profile with the given name, creating it if it
// does not exist yet.
func (s *SQLiteStore) EnsureProfile(ctx context.Context, name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("profile name cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (name, created_at) VALUES (?, ?)`,
		name, time.Now().UTC(),
	); err != nil {
		return nil, fmt.Errorf("creating profile %q: %w", name, err)
	}

	p, err := s.GetProfile(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("profile %q vanished after insert", name)
	}
	return p, nil
}

// GetProfile retrieves a profile by name. Returns nil if not found.
func (s *SQLiteStore) GetProfile(ctx context.Context, name string) (*Profile, error) {
	p := &Profile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM profiles WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile %q: %w", name, err)
	}
	return p, nil
}

// ListProfiles returns all profiles ordered by name.
func (s *SQLiteStore) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM profiles ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return profiles, nil
}
