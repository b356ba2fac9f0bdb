package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLoadCreatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids", "participant_id")

	first, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a UUID, got %q: %v", first, err)
	}

	second, err := Load(path)
	if err != nil {
		t.Fatalf("Load (second): %v", err)
	}
	if second != first {
		t.Fatalf("identity changed between calls: %q != %q", second, first)
	}
}

func TestLoadReadsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "participant_id")
	if err := os.WriteFile(path, []byte("stored-id\n"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "stored-id" {
		t.Fatalf("expected stored id, got %q", got)
	}
}

func TestLoadDistinctPathsDistinctIDs(t *testing.T) {
	dir := t.TempDir()

	a, err := Load(filepath.Join(dir, "a"))
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	b, err := Load(filepath.Join(dir, "b"))
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}
	if a == b {
		t.Fatalf("two devices collided on id %q", a)
	}
}
