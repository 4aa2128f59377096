package text

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ritoshark/flint/pkg/bin"
)

// writeTestBin writes a minimal valid tree to the specified path.
func writeTestBin(t *testing.T, path string, skinName string) *bin.Tree {
	t.Helper()
	tree := bin.NewTree()
	tree.Insert(&bin.Object{
		PathDigest:  1,
		ClassDigest: 2,
		Properties: []bin.Property{
			{Name: 3, Value: bin.String(skinName)},
		},
	})
	data, err := bin.Write(tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return tree
}

// TestReadOrConvertGeneratesSidecar tests conversion and sidecar creation on
// a cache miss.
func TestReadOrConvertGeneratesSidecar(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "skin0.bin")
	writeTestBin(t, binPath, "Kayn Base")

	content, err := ReadOrConvert(binPath, nil, nil)
	if err != nil {
		t.Fatal("conversion failed:", err)
	}
	sidecar, err := os.ReadFile(SidecarPath(binPath))
	if err != nil {
		t.Fatal("sidecar not written:", err)
	}
	if string(sidecar) != content {
		t.Error("sidecar content differs from returned content")
	}
}

// TestReadOrConvertPrefersFreshSidecar tests the byte-for-byte cache hit on
// a fresh sidecar.
func TestReadOrConvertPrefersFreshSidecar(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "skin0.bin")
	writeTestBin(t, binPath, "Kayn Base")

	// Plant a sentinel sidecar newer than the binary.
	sentinel := "# sentinel cache content\n"
	if err := os.WriteFile(SidecarPath(binPath), []byte(sentinel), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(SidecarPath(binPath), future, future); err != nil {
		t.Fatal(err)
	}

	content, err := ReadOrConvert(binPath, nil, nil)
	if err != nil {
		t.Fatal("read failed:", err)
	}
	if content != sentinel {
		t.Error("fresh sidecar was not returned byte-for-byte")
	}
}

// TestReadOrConvertRegeneratesStaleSidecar tests regeneration when the
// binary is newer than the sidecar.
func TestReadOrConvertRegeneratesStaleSidecar(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "skin0.bin")
	writeTestBin(t, binPath, "Kayn Base")

	stale := "# stale cache content\n"
	if err := os.WriteFile(SidecarPath(binPath), []byte(stale), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(SidecarPath(binPath), past, past); err != nil {
		t.Fatal(err)
	}

	content, err := ReadOrConvert(binPath, nil, nil)
	if err != nil {
		t.Fatal("read failed:", err)
	}
	if content == stale {
		t.Error("stale sidecar was returned instead of regenerated")
	}
	sidecar, err := os.ReadFile(SidecarPath(binPath))
	if err != nil {
		t.Fatal(err)
	}
	if string(sidecar) != content {
		t.Error("sidecar was not overwritten with fresh content")
	}
}

// TestSaveTextWritesBinaryAndSidecar tests the write path: edited text lands
// in both the binary and the sidecar, and the binary parses back.
func TestSaveTextWritesBinaryAndSidecar(t *testing.T) {
	binPath := filepath.Join(t.TempDir(), "skin0.bin")
	original := writeTestBin(t, binPath, "Kayn Base")

	rendered, err := Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveText(binPath, rendered, nil); err != nil {
		t.Fatal("save failed:", err)
	}

	reloaded, err := bin.ParseFile(binPath)
	if err != nil {
		t.Fatal("saved binary does not parse:", err)
	}
	if !original.Equal(reloaded) {
		t.Error("saved binary differs from original tree")
	}
	sidecar, err := os.ReadFile(SidecarPath(binPath))
	if err != nil {
		t.Fatal("sidecar missing after save:", err)
	}
	if string(sidecar) != rendered {
		t.Error("sidecar content differs from saved text")
	}
}

// TestCachedProviderSingleInitialization tests that the cached provider
// initializes exactly once.
func TestCachedProviderSingleInitialization(t *testing.T) {
	calls := 0
	InitializeCachedProvider(func() Provider {
		calls++
		return &fixtureProvider{}
	})
	first := CachedProvider()
	second := CachedProvider()
	if first == nil || first != second {
		t.Error("cached provider not stable across calls")
	}
	if calls != 1 {
		t.Errorf("factory called %d times, expected 1", calls)
	}
}
