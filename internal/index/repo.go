package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/models"
)

// IsPrepared reports whether the frame has been recorded as prepared.
func (db *DB) IsPrepared(id frame.ID) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT 1 FROM prepared WHERE name = ?`, id.Name).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("index: is prepared: %w", err)
	}
	return true, nil
}

// MarkPrepared records the frame as prepared. Marking twice is a no-op.
func (db *DB) MarkPrepared(id frame.ID) error {
	_, err := db.conn.Exec(`
		INSERT INTO prepared (name, captured_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, id.Name, id.Time)
	if err != nil {
		return fmt.Errorf("index: mark prepared: %w", err)
	}
	return nil
}

// UnmarkPrepared forgets a prepared frame.
func (db *DB) UnmarkPrepared(name string) error {
	if _, err := db.conn.Exec(`DELETE FROM prepared WHERE name = ?`, name); err != nil {
		return fmt.Errorf("index: unmark prepared: %w", err)
	}
	return nil
}

// PreparedNames returns every frame name recorded as prepared.
func (db *DB) PreparedNames() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT name FROM prepared`)
	if err != nil {
		return nil, fmt.Errorf("index: prepared names: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out[n] = struct{}{}
	}
	return out, rows.Err()
}

// Sent reports whether name was delivered under category with the same
// checksum. A changed checksum counts as unsent.
func (db *DB) Sent(name string, category models.Category, checksum string) (bool, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM uploads WHERE name = ? AND category = ?`,
		name, string(category)).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("index: sent: %w", err)
	}
	return cs == checksum, nil
}

// MarkSent records a successful delivery.
func (db *DB) MarkSent(name string, category models.Category, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO uploads (name, category, checksum, uploaded_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name, category) DO UPDATE SET
			checksum    = excluded.checksum,
			uploaded_at = excluded.uploaded_at
	`, name, string(category), checksum)
	if err != nil {
		return fmt.Errorf("index: mark sent: %w", err)
	}
	return nil
}
