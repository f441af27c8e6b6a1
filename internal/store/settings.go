package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned when a requested setting does not exist.
var ErrNotFound = errors.New("not found")

// Setting keys remembered between runs.
const (
	KeyLastCamera = "last_camera"
	KeyLastSource = "last_source"
)

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value for key and whether it was set.
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// GetInt returns the integer value for key. A stored value that is not an
// integer is reported as an error.
func (r *SettingsRepository) GetInt(key string) (int, bool, error) {
	value, ok, err := r.Get(key)
	if err != nil || !ok {
		return 0, ok, err
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("setting %q is not an integer: %w", key, err)
	}
	return n, true, nil
}

// Set inserts or replaces the value for key.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

// Delete removes key.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
