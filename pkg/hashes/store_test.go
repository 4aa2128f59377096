package hashes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

// writeHashFile creates a hash file with the specified content in the
// specified directory.
func writeHashFile(t *testing.T, directory, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(directory, name), []byte(content), 0644); err != nil {
		t.Fatal("unable to write hash file:", err)
	}
}

// TestLoadMergesRecognizedFiles tests that loading merges records from all
// recognized files and ignores unrecognized ones.
func TestLoadMergesRecognizedFiles(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt",
		"1a2b3c4d5e6f7a8b assets/characters/kayn/skins/base/kayn.tex\n"+
			"0x5e6f7a8b data/characters/kayn/kayn.bin\n",
	)
	writeHashFile(t, directory, "hashes.binfields.txt", "e55245ad skinClassification\n")
	writeHashFile(t, directory, "notes.txt", "deadbeef should-be-ignored\n")
	writeHashFile(t, directory, "readme.md", "not a hash file\n")

	store, err := Load(directory, nil)
	if err != nil {
		t.Fatal("unable to load store:", err)
	}
	if count := store.Count(); count != 3 {
		t.Errorf("unexpected record count: %d != 3", count)
	}
	if count := store.CountByCategory(Game); count != 2 {
		t.Errorf("unexpected game record count: %d != 2", count)
	}
	if name := store.Resolve(Game, 0x1a2b3c4d5e6f7a8b); name != "assets/characters/kayn/skins/base/kayn.tex" {
		t.Errorf("unexpected resolution: %q", name)
	}
	if name := store.Resolve(BinFields, 0xe55245ad); name != "skinClassification" {
		t.Errorf("unexpected resolution: %q", name)
	}
}

// TestResolveFallback tests the hex fallback renderings for unknown digests
// in 64-bit and 32-bit categories.
func TestResolveFallback(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt", "1a2b3c4d test.bin\n")

	store, err := Load(directory, nil)
	if err != nil {
		t.Fatal("unable to load store:", err)
	}
	if name := store.Resolve(Game, 0x1a2b3c4d); name != "test.bin" {
		t.Errorf("unexpected resolution: %q", name)
	}
	if name := store.Resolve(Game, 0xdeadbeef); name != "00000000deadbeef" {
		t.Errorf("unexpected 64-bit fallback: %q", name)
	}
	if name := store.Resolve(BinEntries, 0xdeadbeef); name != "deadbeef" {
		t.Errorf("unexpected 32-bit fallback: %q", name)
	}
	if name := store.Resolve(BinEntries, 0xff); name != "000000ff" {
		t.Errorf("unexpected 32-bit fallback padding: %q", name)
	}
}

// TestLoadSkipsCommentsAndHashOnlyLines tests record skipping rules.
func TestLoadSkipsCommentsAndHashOnlyLines(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt",
		"# comment\n\n1a2b3c4d test.bin\ndeadbeef\n5e6f7a8b other.bin\n",
	)

	store, err := Load(directory, nil)
	if err != nil {
		t.Fatal("unable to load store:", err)
	}
	if count := store.Count(); count != 2 {
		t.Errorf("unexpected record count: %d != 2", count)
	}
}

// TestLoadDecimalDigest tests decimal digest parsing. All-digit tokens of up
// to 16 digits read as hex, so the record uses a 20-digit decimal value that
// does not fit as hex.
func TestLoadDecimalDigest(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt", "12345678901234567890 test.bin\n")

	store, err := Load(directory, nil)
	if err != nil {
		t.Fatal("unable to load store:", err)
	}
	if name := store.Resolve(Game, 12345678901234567890); name != "test.bin" {
		t.Errorf("unexpected resolution: %q", name)
	}
}

// TestLoadMalformedDigest tests that a malformed digest yields a ParseError
// carrying the file and line.
func TestLoadMalformedDigest(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt", "1a2b3c4d fine.bin\nzz!bad test.bin\n")

	_, err := Load(directory, nil)
	if err == nil {
		t.Fatal("expected load to fail")
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected a ParseError, got %T", err)
	}
	if parseErr.Line != 2 {
		t.Errorf("unexpected error line: %d != 2", parseErr.Line)
	}
}

// TestLoadMissingDirectory tests that loading from a missing directory is a
// hard error.
func TestLoadMissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing"), nil); err == nil {
		t.Error("expected load to fail for missing directory")
	}
}

// TestReloadPicksUpNewFiles tests that reload synchronizes with the source
// directory.
func TestReloadPicksUpNewFiles(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt", "1a2b3c4d first.bin\n")

	store, err := Load(directory, nil)
	if err != nil {
		t.Fatal("unable to load store:", err)
	}
	if count := store.Count(); count != 1 {
		t.Fatalf("unexpected initial count: %d != 1", count)
	}

	writeHashFile(t, directory, "hashes.lcu.txt", "5e6f7a8b plugins/second.json\n")
	if err := store.Reload(); err != nil {
		t.Fatal("unable to reload store:", err)
	}
	if count := store.Count(); count != 2 {
		t.Errorf("unexpected reloaded count: %d != 2", count)
	}
}

// TestLazyLoadOnFirstResolve tests that a lazy store loads on the first
// resolution.
func TestLazyLoadOnFirstResolve(t *testing.T) {
	directory := t.TempDir()
	writeHashFile(t, directory, "hashes.game.txt", "1a2b3c4d test.bin\n")

	store := NewLazy(directory, nil)
	if name := store.Resolve(Game, 0x1a2b3c4d); name != "test.bin" {
		t.Errorf("unexpected lazy resolution: %q", name)
	}
}

// TestLazyLoadMissingDirectoryFallsBack tests that a lazy store whose
// directory is missing still renders hex fallbacks.
func TestLazyLoadMissingDirectoryFallsBack(t *testing.T) {
	store := NewLazy(filepath.Join(t.TempDir(), "missing"), nil)
	if name := store.Resolve(Game, 0xdeadbeef); name != "00000000deadbeef" {
		t.Errorf("unexpected fallback: %q", name)
	}
}
