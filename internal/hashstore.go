package internal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// HashStore persists identity hashes across runs so a re-run of the same
// chat skips messages already captured.
type HashStore struct {
	db   *sql.DB
	path string
}

// OpenHashStore opens (creating if needed) the store at path.
func OpenHashStore(path string) (*HashStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash store %s: %w", path, err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS seen_hashes (
			chat TEXT NOT NULL,
			hash TEXT NOT NULL,
			PRIMARY KEY (chat, hash)
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize hash store: %w", err)
	}

	return &HashStore{db: db, path: path}, nil
}

// Close releases the underlying database.
func (s *HashStore) Close() error {
	return s.db.Close()
}

// Load returns every identity hash recorded for chatID.
func (s *HashStore) Load(chatID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT hash FROM seen_hashes WHERE chat = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hashes for %s: %w", chatID, err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan hash row: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// Append records hashes for chatID, ignoring ones already present.
func (s *HashStore) Append(chatID string, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin hash store transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO seen_hashes (chat, hash) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare hash insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hashes {
		if _, err := stmt.Exec(chatID, h); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record hash for %s: %w", chatID, err)
		}
	}
	return tx.Commit()
}

// Count returns how many hashes are recorded for chatID.
func (s *HashStore) Count(chatID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM seen_hashes WHERE chat = ?`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count hashes for %s: %w", chatID, err)
	}
	return n, nil
}
