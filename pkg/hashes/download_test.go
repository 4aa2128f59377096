package hashes

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestMergeSplitFiles tests that split game lists are merged in suffix order
// and that the parts are kept.
func TestMergeSplitFiles(t *testing.T) {
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "hashes.game.txt.0"), []byte("line1\nline2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(directory, "hashes.game.txt.1"), []byte("line3\nline4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := mergeSplitFiles(directory); err != nil {
		t.Fatal("unable to merge split files:", err)
	}

	merged, err := os.ReadFile(filepath.Join(directory, "hashes.game.txt"))
	if err != nil {
		t.Fatal("merged file missing:", err)
	}
	if string(merged) != "line1\nline2\nline3\nline4\n" {
		t.Errorf("unexpected merged content: %q", merged)
	}
	if _, err := os.Stat(filepath.Join(directory, "hashes.game.txt.0")); err != nil {
		t.Error("split part 0 was removed")
	}
	if _, err := os.Stat(filepath.Join(directory, "hashes.game.txt.1")); err != nil {
		t.Error("split part 1 was removed")
	}
}

// TestMergeSplitFilesAbsent tests that merging is a no-op when no split
// parts exist.
func TestMergeSplitFilesAbsent(t *testing.T) {
	directory := t.TempDir()
	if err := mergeSplitFiles(directory); err != nil {
		t.Fatal("merge failed with no parts present:", err)
	}
	if _, err := os.Stat(filepath.Join(directory, "hashes.game.txt")); !os.IsNotExist(err) {
		t.Error("merged file created with no parts present")
	}
}

// TestNeedsUpdate tests the staleness check for absent, fresh, and stale
// files.
func TestNeedsUpdate(t *testing.T) {
	directory := t.TempDir()

	if !needsUpdate(filepath.Join(directory, "absent.txt")) {
		t.Error("absent file should need update")
	}

	fresh := filepath.Join(directory, "fresh.txt")
	if err := os.WriteFile(fresh, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if needsUpdate(fresh) {
		t.Error("fresh file should not need update")
	}

	stale := filepath.Join(directory, "stale.txt")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-15 * 24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}
	if !needsUpdate(stale) {
		t.Error("stale file should need update")
	}
}

// TestStatusReportsPresenceAndStaleness tests the per-file status report.
func TestStatusReportsPresenceAndStaleness(t *testing.T) {
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "hashes.lcu.txt"), []byte("1a2b3c4d x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	statuses := Status(directory)
	byName := make(map[string]FileStatus, len(statuses))
	for _, status := range statuses {
		byName[status.Name] = status
	}

	if status := byName["hashes.lcu.txt"]; !status.Present || status.Stale {
		t.Errorf("unexpected status for present file: %+v", status)
	}
	if status := byName["hashes.rst.txt"]; status.Present || !status.Stale {
		t.Errorf("unexpected status for absent file: %+v", status)
	}
}
