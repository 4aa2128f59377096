package organizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ritoshark/flint/pkg/bin"
	"github.com/ritoshark/flint/pkg/wad"
)

// writeAsset creates an asset file with placeholder content beneath root.
func writeAsset(t *testing.T, root, relative string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relative))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("asset"), 0644); err != nil {
		t.Fatal(err)
	}
}

// buildSkinProject lays out a content base with a champion WAD folder, a
// main skin tree referencing a texture, and the texture itself.
func buildSkinProject(t *testing.T, texturePath string) (string, string) {
	contentBase := t.TempDir()
	wadRoot := filepath.Join(contentBase, "kayn.wad.client")

	main := bin.NewTree()
	main.Insert(&bin.Object{
		PathDigest:  bin.Digest("Characters/Kayn/Skins/Skin0"),
		ClassDigest: bin.Digest("SkinCharacterDataProperties"),
		Properties: []bin.Property{
			{Name: bin.Digest("texture"), Value: bin.String(texturePath)},
		},
	})
	writeTree(t, wadRoot, "data/characters/kayn/skins/skin0.bin", main)
	writeAsset(t, wadRoot, texturePath)

	return contentBase, wadRoot
}

// TestRepathPrefixesAndRelocates covers the headline repathing behavior:
// the tree string gains the namespace prefix and the backing file moves.
func TestRepathPrefixesAndRelocates(t *testing.T) {
	texture := "assets/characters/kayn/skins/skin0/kayn.tex"
	contentBase, wadRoot := buildSkinProject(t, texture)

	config := NewConfig("Sir Dexal", "My Mod", "Kayn", 0)
	result, err := Repath(contentBase, config, wad.PathMapping{}, nil)
	if err != nil {
		t.Fatal("repathing failed:", err)
	}
	if result.PathsModified != 1 {
		t.Errorf("unexpected modification count: %d != 1", result.PathsModified)
	}
	if result.FilesRelocated != 1 {
		t.Errorf("unexpected relocation count: %d != 1", result.FilesRelocated)
	}
	if len(result.MissingPaths) != 0 {
		t.Errorf("unexpected missing paths: %v", result.MissingPaths)
	}

	// The tree now references the namespaced path.
	rewritten, err := bin.ParseFile(filepath.Join(wadRoot, "data", "characters", "kayn", "skins", "skin0.bin"))
	if err != nil {
		t.Fatal(err)
	}
	expected := "ASSETS/Sir-Dexal/My-Mod/characters/kayn/skins/skin0/kayn.tex"
	object := rewritten.Lookup(bin.Digest("Characters/Kayn/Skins/Skin0"))
	if object == nil {
		t.Fatal("object missing after rewrite")
	}
	if object.Properties[0].Value != bin.String(expected) {
		t.Errorf("unexpected rewritten path: %v", object.Properties[0].Value)
	}

	// The file moved with it.
	if _, err := os.Stat(filepath.Join(wadRoot, filepath.FromSlash(expected))); err != nil {
		t.Error("relocated file missing:", err)
	}
	if _, err := os.Stat(filepath.Join(wadRoot, filepath.FromSlash(texture))); !os.IsNotExist(err) {
		t.Error("original file still present")
	}
}

// TestRepathIdempotent tests that a second run with the same configuration
// modifies nothing further.
func TestRepathIdempotent(t *testing.T) {
	texture := "assets/characters/kayn/skins/skin0/kayn.tex"
	contentBase, wadRoot := buildSkinProject(t, texture)
	config := NewConfig("Sir Dexal", "My Mod", "Kayn", 0)

	if _, err := Repath(contentBase, config, wad.PathMapping{}, nil); err != nil {
		t.Fatal("first run failed:", err)
	}
	firstTree, err := os.ReadFile(filepath.Join(wadRoot, "data", "characters", "kayn", "skins", "skin0.bin"))
	if err != nil {
		t.Fatal(err)
	}

	second, err := Repath(contentBase, config, wad.PathMapping{}, nil)
	if err != nil {
		t.Fatal("second run failed:", err)
	}
	if second.PathsModified != 0 {
		t.Errorf("second run modified %d paths", second.PathsModified)
	}
	if second.FilesRelocated != 0 {
		t.Errorf("second run relocated %d files", second.FilesRelocated)
	}
	secondTree, err := os.ReadFile(filepath.Join(wadRoot, "data", "characters", "kayn", "skins", "skin0.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(firstTree) != string(secondTree) {
		t.Error("second run changed the tree bytes")
	}

	namespaced := filepath.Join(wadRoot, "ASSETS", "Sir-Dexal", "My-Mod", "characters", "kayn", "skins", "skin0", "kayn.tex")
	if _, err := os.Stat(namespaced); err != nil {
		t.Error("namespaced file missing after second run:", err)
	}
}

// TestRepathCaseInsensitiveResolution tests that references whose casing
// differs from the on-disk file still resolve and relocate.
func TestRepathCaseInsensitiveResolution(t *testing.T) {
	contentBase, wadRoot := buildSkinProject(t, "ASSETS/Characters/Kayn/Skins/Skin0/Kayn.TEX")
	// The tree references the same file in a different case; rewrite the
	// main tree to use the lowercase spelling.
	main := bin.NewTree()
	main.Insert(&bin.Object{
		PathDigest:  bin.Digest("Characters/Kayn/Skins/Skin0"),
		ClassDigest: bin.Digest("SkinCharacterDataProperties"),
		Properties: []bin.Property{
			{Name: bin.Digest("texture"), Value: bin.String("assets/characters/kayn/skins/skin0/kayn.tex")},
		},
	})
	writeTree(t, wadRoot, "data/characters/kayn/skins/skin0.bin", main)

	config := NewConfig("Creator", "Project", "Kayn", 0)
	result, err := Repath(contentBase, config, wad.PathMapping{}, nil)
	if err != nil {
		t.Fatal("repathing failed:", err)
	}
	if len(result.MissingPaths) != 0 {
		t.Errorf("case-insensitive lookup failed: %v", result.MissingPaths)
	}
	if result.PathsModified != 1 {
		t.Errorf("unexpected modification count: %d != 1", result.PathsModified)
	}
}

// TestRepathRecordsMissingPaths tests that unresolvable references land in
// the missing list and are not rewritten.
func TestRepathRecordsMissingPaths(t *testing.T) {
	contentBase, wadRoot := buildSkinProject(t, "assets/present.tex")
	main := bin.NewTree()
	main.Insert(&bin.Object{
		PathDigest:  bin.Digest("Characters/Kayn/Skins/Skin0"),
		ClassDigest: bin.Digest("SkinCharacterDataProperties"),
		Properties: []bin.Property{
			{Name: bin.Digest("present"), Value: bin.String("assets/present.tex")},
			{Name: bin.Digest("absent"), Value: bin.String("assets/absent.tex")},
		},
	})
	writeTree(t, wadRoot, "data/characters/kayn/skins/skin0.bin", main)

	config := NewConfig("Creator", "Project", "Kayn", 0)
	result, err := Repath(contentBase, config, wad.PathMapping{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.MissingPaths) != 1 || result.MissingPaths[0] != "assets/absent.tex" {
		t.Errorf("unexpected missing paths: %v", result.MissingPaths)
	}
	if result.PathsModified != 1 {
		t.Errorf("unexpected modification count: %d != 1", result.PathsModified)
	}

	rewritten, err := bin.ParseFile(filepath.Join(wadRoot, "data", "characters", "kayn", "skins", "skin0.bin"))
	if err != nil {
		t.Fatal(err)
	}
	object := rewritten.Lookup(bin.Digest("Characters/Kayn/Skins/Skin0"))
	if object.Properties[1].Value != bin.String("assets/absent.tex") {
		t.Error("missing path was rewritten")
	}
}

// TestRepathCleanupAndWhitelist tests orphan cleanup and the tree
// whitelist pruning.
func TestRepathCleanupAndWhitelist(t *testing.T) {
	texture := "assets/characters/kayn/skins/skin0/kayn.tex"
	contentBase, wadRoot := buildSkinProject(t, texture)

	// Unreferenced files and trees that should be pruned.
	writeAsset(t, wadRoot, "assets/characters/kayn/skins/skin1/orphan.tex")
	writeTree(t, wadRoot, "data/characters/kayn/kayn.bin", bin.NewTree())
	writeTree(t, wadRoot, "data/characters/kayn/skins/skin3.bin", bin.NewTree())
	writeTree(t, wadRoot, "data/characters/kayn/animations/skin0.bin", bin.NewTree())
	writeTree(t, wadRoot, "data/characters/kayn/animations/skin7.bin", bin.NewTree())

	config := NewConfig("Creator", "Project", "Kayn", 0)
	result, err := Repath(contentBase, config, wad.PathMapping{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.FilesRemoved != 1 {
		t.Errorf("unexpected removal count: %d != 1", result.FilesRemoved)
	}

	// Orphan asset removed; referenced asset kept (at its new home).
	if _, err := os.Stat(filepath.Join(wadRoot, "assets", "characters", "kayn", "skins", "skin1", "orphan.tex")); !os.IsNotExist(err) {
		t.Error("orphan asset survived cleanup")
	}

	// Whitelist: skin0 trees survive, others do not.
	kept := []string{
		"data/characters/kayn/skins/skin0.bin",
		"data/characters/kayn/animations/skin0.bin",
	}
	for _, path := range kept {
		if _, err := os.Stat(filepath.Join(wadRoot, filepath.FromSlash(path))); err != nil {
			t.Errorf("whitelisted tree removed: %s", path)
		}
	}
	removedTrees := []string{
		"data/characters/kayn/kayn.bin",
		"data/characters/kayn/skins/skin3.bin",
		"data/characters/kayn/animations/skin7.bin",
	}
	for _, path := range removedTrees {
		if _, err := os.Stat(filepath.Join(wadRoot, filepath.FromSlash(path))); !os.IsNotExist(err) {
			t.Errorf("non-whitelisted tree survived: %s", path)
		}
	}
}

// TestRepathMissingMainTreeIsHardError tests the prerequisite failure.
func TestRepathMissingMainTreeIsHardError(t *testing.T) {
	contentBase := t.TempDir()
	config := NewConfig("Creator", "Project", "Kayn", 0)
	if _, err := Repath(contentBase, config, wad.PathMapping{}, nil); err == nil {
		t.Error("expected repathing to fail without a main tree")
	}
}

// TestOrganizeRunsConcatThenRepath tests the orchestrator end to end and
// that concat effects are visible to repath.
func TestOrganizeRunsConcatThenRepath(t *testing.T) {
	texture := "assets/characters/kayn/skins/skin0/kayn.tex"
	contentBase, wadRoot := buildSkinProject(t, texture)

	// Give the main tree a linked dependency carrying another asset.
	mainPath := filepath.Join(wadRoot, "data", "characters", "kayn", "skins", "skin0.bin")
	main, err := bin.ParseFile(mainPath)
	if err != nil {
		t.Fatal(err)
	}
	main.Dependencies = []string{"DATA/Kayn_Skins_Skin0_Extra.bin"}
	data, err := bin.Write(main)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mainPath, data, 0644); err != nil {
		t.Fatal(err)
	}
	writeTree(t, wadRoot, "data/kayn_skins_skin0_extra.bin",
		linkedTree(testObject(42, "assets/characters/kayn/skins/skin0/extra.tex")))
	writeAsset(t, wadRoot, "assets/characters/kayn/skins/skin0/extra.tex")

	config := NewConfig("Creator", "Project", "Kayn", 0)
	result, err := Organize(context.Background(), contentBase, config, wad.PathMapping{}, nil)
	if err != nil {
		t.Fatal("organization failed:", err)
	}
	if result.Concat == nil {
		t.Fatal("concat phase did not run")
	}
	if result.Repath == nil {
		t.Fatal("repath phase did not run")
	}

	// The concat tree exists and was itself repathed: its asset reference
	// carries the namespace prefix.
	concat, err := bin.ParseFile(filepath.Join(wadRoot, filepath.FromSlash(result.Concat.ConcatPath)))
	if err != nil {
		t.Fatal(err)
	}
	object := concat.Lookup(42)
	if object == nil {
		t.Fatal("merged object missing from concat tree")
	}
	expected := "ASSETS/Creator/Project/characters/kayn/skins/skin0/extra.tex"
	if object.Properties[0].Value != bin.String(expected) {
		t.Errorf("concat tree not repathed: %v", object.Properties[0].Value)
	}
}

// TestSlugify tests slug derivation.
func TestSlugify(t *testing.T) {
	tests := []struct{ in, out string }{
		{"Sir Dexal", "sir-dexal"},
		{"My  Cool   Mod!!", "my-cool-mod"},
		{"already-slugged", "already-slugged"},
		{"UPPER", "upper"},
		{"trailing ", "trailing"},
	}
	for _, test := range tests {
		if slug := Slugify(test.in); slug != test.out {
			t.Errorf("Slugify(%q) = %q, expected %q", test.in, slug, test.out)
		}
	}
}
