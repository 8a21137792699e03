package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateHashStoreFixture creates a seen-hash database pre-populated with the
// given hashes for one chat.
func CreateHashStoreFixture(t *testing.T, dbPath, chat string, hashes []string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS seen_hashes (
		chat TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (chat, hash)
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		t.Fatalf("Failed to create seen_hashes table: %v", err)
	}

	for _, h := range hashes {
		if _, err := db.Exec(`INSERT OR IGNORE INTO seen_hashes (chat, hash) VALUES (?, ?)`, chat, h); err != nil {
			t.Fatalf("Failed to insert fixture hash: %v", err)
		}
	}
}
