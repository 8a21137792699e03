package internal

import (
	"path/filepath"
	"testing"

	"github.com/mwinter/teams-scrape/testutil"
)

func TestHashStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")

	store, err := OpenHashStore(path)
	if err != nil {
		t.Fatalf("OpenHashStore() error = %v", err)
	}
	defer store.Close()

	hashes := []string{
		IdentityHash("Alice", "10:01", "hi"),
		IdentityHash("Bob", "10:02", "hello"),
	}
	if err := store.Append("Test Chat", hashes); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := store.Load("Test Chat")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Load() returned %d hashes, want 2", len(got))
	}

	other, err := store.Load("Other Chat")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("hashes must be scoped per chat, got %d for an empty chat", len(other))
	}
}

func TestHashStoreAppendIgnoresDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")
	store, err := OpenHashStore(path)
	if err != nil {
		t.Fatalf("OpenHashStore() error = %v", err)
	}
	defer store.Close()

	h := IdentityHash("Alice", "10:01", "hi")
	for i := 0; i < 3; i++ {
		if err := store.Append("Test Chat", []string{h}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	n, err := store.Count("Test Chat")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestHashStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")

	store, err := OpenHashStore(path)
	if err != nil {
		t.Fatalf("OpenHashStore() error = %v", err)
	}
	h := IdentityHash("Alice", "10:01", "hi")
	if err := store.Append("Test Chat", []string{h}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	store.Close()

	reopened, err := OpenHashStore(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load("Test Chat")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0] != h {
		t.Errorf("Load() = %v, want [%s]", got, h)
	}
}

func TestHashStoreReadsExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")
	seeded := []string{
		IdentityHash("Alice", "10:01", "hi"),
		IdentityHash("Bob", "10:02", "hello"),
	}
	testutil.CreateHashStoreFixture(t, path, "Test Chat", seeded)

	store, err := OpenHashStore(path)
	if err != nil {
		t.Fatalf("OpenHashStore() error = %v", err)
	}
	defer store.Close()

	got, err := store.Load("Test Chat")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(seeded) {
		t.Errorf("Load() = %d hashes, want %d", len(got), len(seeded))
	}
}

func TestHashStoreAppendEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.db")
	store, err := OpenHashStore(path)
	if err != nil {
		t.Fatalf("OpenHashStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Append("Test Chat", nil); err != nil {
		t.Errorf("Append(nil) error = %v, want nil", err)
	}
}
