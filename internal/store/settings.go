package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get returns the value for key. Staged values shadow persisted ones.
// ok is false when the key has never been set.
func (s *Store) Get(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	v, staged := s.pending[key]
	s.mu.Unlock()
	if staged {
		return v, true, nil
	}

	err = s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

// Set stages value for key. It is not durable until Save.
func (s *Store) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("set setting: empty key")
	}
	s.mu.Lock()
	s.pending[key] = value
	s.mu.Unlock()
	return nil
}

// Discard drops the staged value for key, if any.
func (s *Store) Discard(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

// Save commits every value staged since the last Save in one transaction.
// On failure the staged values are kept so a later Save can retry them.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for k, v := range s.pending {
		_, err := tx.Exec(
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, v, now,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("save setting %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}

	clear(s.pending)
	return nil
}

// GetAllSettings lists the persisted settings, ignoring staged values.
func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		var updatedAt string
		if err := rows.Scan(&st.Key, &st.Value, &updatedAt); err != nil {
			return nil, err
		}
		st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		settings = append(settings, st)
	}
	return settings, rows.Err()
}
