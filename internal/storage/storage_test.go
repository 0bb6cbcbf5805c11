package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}
	if got, want := s.SnapshotPath(), filepath.Join(dir, SnapshotFile); got != want {
		t.Fatalf("snapshot path %q, want %q", got, want)
	}
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}
