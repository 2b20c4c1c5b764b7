package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveLocalBlob replaces the single local-mode snapshot row.
func SaveLocalBlob(db *sql.DB, data []byte) error {
	_, err := db.Exec(
		`INSERT INTO local_snapshot (id, data, saved_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
		data,
	)
	if err != nil {
		return fmt.Errorf("save local snapshot: %w", err)
	}
	return nil
}

// LoadLocalBlob returns the stored local-mode snapshot and when it was
// saved. It returns ErrNotFound if nothing has been saved yet.
func LoadLocalBlob(db *sql.DB) ([]byte, time.Time, error) {
	var data []byte
	var savedAt time.Time
	err := db.QueryRow("SELECT data, saved_at FROM local_snapshot WHERE id = 1").Scan(&data, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("local snapshot: %w", ErrNotFound)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load local snapshot: %w", err)
	}
	return data, savedAt, nil
}
