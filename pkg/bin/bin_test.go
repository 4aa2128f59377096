package bin

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildTestTree constructs a tree exercising every value kind, including
// nested containers, structures, optionals, and maps.
func buildTestTree() *Tree {
	tree := NewTree()
	tree.Dependencies = []string{
		"DATA/Characters/Kayn/Kayn.bin",
		"DATA/Characters/Kayn/Animations/Skin0.bin",
	}

	tree.Insert(&Object{
		PathDigest:  Digest("Characters/Kayn/Skins/Skin0"),
		ClassDigest: Digest("SkinCharacterDataProperties"),
		Properties: []Property{
			{Name: Digest("championSkinName"), Value: String("Kayn Base")},
			{Name: Digest("skinClassification"), Value: U32(1)},
			{Name: Digest("skinAudioProperties"), Value: &Struct{
				Class: Digest("SkinAudioProperties"),
				Properties: []Property{
					{Name: Digest("bankUnits"), Value: &Container{
						Item: KindString,
						Items: []Value{
							String("assets/sounds/kayn_base_sfx.bnk"),
							String("assets/sounds/kayn_base_vo.bnk"),
						},
					}},
				},
			}},
			{Name: Digest("emblems"), Value: &Struct{Class: 0}},
			{Name: Digest("tintColor"), Value: Color{255, 128, 0, 255}},
			{Name: Digest("position"), Value: Vector3{1.5, -2.25, 0.125}},
			{Name: Digest("uvScroll"), Value: Vector2{0.5, 0.25}},
			{Name: Digest("rotation"), Value: Vector4{0, 0, 0, 1}},
			{Name: Digest("selfIllumination"), Value: F32(0.75)},
			{Name: Digest("enabled"), Value: Bool(true)},
			{Name: Digest("isolated"), Value: BitBool(false)},
			{Name: Digest("meshLink"), Value: WadLink(0x1a2b3c4d5e6f7a8b)},
			{Name: Digest("parentLink"), Value: ObjectLink(Digest("Characters/Kayn"))},
			{Name: Digest("nameDigest"), Value: Hash(0xdeadbeef)},
		},
	})

	tree.Insert(&Object{
		PathDigest:  Digest("Characters/Kayn/Skins/Skin0/Resources"),
		ClassDigest: Digest("ResourceResolver"),
		Properties: []Property{
			{Name: Digest("resourceMap"), Value: &Map{
				KeyKind:   KindHash,
				ValueKind: KindString,
				Entries: []MapEntry{
					NewMapEntry(Hash(1), String("assets/characters/kayn/skins/base/kayn.tex")),
					NewMapEntry(Hash(2), String("assets/characters/kayn/skins/base/kayn.skn")),
				},
			}},
			{Name: Digest("tags"), Value: &UnorderedContainer{
				Item:  KindString,
				Items: []Value{String("zebra"), String("alpha"), String("mid")},
			}},
			{Name: Digest("override"), Value: &Optional{Item: KindF32, Value: F32(2.5)}},
			{Name: Digest("absent"), Value: &Optional{Item: KindU32}},
			{Name: Digest("embedded"), Value: &Embedded{
				Class: Digest("ParticleOverrides"),
				Properties: []Property{
					{Name: Digest("intensity"), Value: I16(-5)},
					{Name: Digest("count"), Value: U16(9)},
					{Name: Digest("offset"), Value: I64(-1234567890123)},
					{Name: Digest("mask"), Value: U64(0xffffffffffffffff)},
					{Name: Digest("tiny"), Value: I8(-3)},
					{Name: Digest("level"), Value: U8(200)},
					{Name: Digest("big"), Value: I32(-100000)},
					{Name: Digest("empty"), Value: None{}},
				},
			}},
		},
	})

	return tree
}

// TestRoundTrip tests that parsing a written tree yields a deeply equal
// tree.
func TestRoundTrip(t *testing.T) {
	original := buildTestTree()
	data, err := Write(original)
	if err != nil {
		t.Fatal("unable to write tree:", err)
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatal("unable to parse written tree:", err)
	}
	if !original.Equal(parsed) {
		t.Error("parsed tree differs from original")
	}
	if !parsed.Equal(original) {
		t.Error("equality is not symmetric")
	}
}

// TestByteStability tests that a second write of a re-parsed tree is
// byte-identical with the first write.
func TestByteStability(t *testing.T) {
	original := buildTestTree()
	first, err := Write(original)
	if err != nil {
		t.Fatal("unable to write tree:", err)
	}
	parsed, err := Parse(first)
	if err != nil {
		t.Fatal("unable to parse written tree:", err)
	}
	second, err := Write(parsed)
	if err != nil {
		t.Fatal("unable to re-write tree:", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second write differs from first")
	}
}

// TestPatchRoundTrip tests PTCH trees, including preservation of the patch
// header across round-trips.
func TestPatchRoundTrip(t *testing.T) {
	tree := buildTestTree()
	tree.Magic = MagicPatch

	data, err := Write(tree)
	if err != nil {
		t.Fatal("unable to write tree:", err)
	}
	if !bytes.HasPrefix(data, []byte("PTCH")) {
		t.Fatal("patch tree missing PTCH magic")
	}
	parsed, err := Parse(data)
	if err != nil {
		t.Fatal("unable to parse patch tree:", err)
	}
	if parsed.Magic != MagicPatch {
		t.Error("patch magic not preserved")
	}
	second, err := Write(parsed)
	if err != nil {
		t.Fatal("unable to re-write patch tree:", err)
	}
	if !bytes.Equal(data, second) {
		t.Error("patch tree write is not byte-stable")
	}
}

// TestUnorderedContainerCanonicalOrder tests that element order inside an
// unordered container does not affect written bytes or equality.
func TestUnorderedContainerCanonicalOrder(t *testing.T) {
	build := func(items ...string) *Tree {
		tree := NewTree()
		values := make([]Value, len(items))
		for i, item := range items {
			values[i] = String(item)
		}
		tree.Insert(&Object{
			PathDigest:  1,
			ClassDigest: 2,
			Properties: []Property{
				{Name: 3, Value: &UnorderedContainer{Item: KindString, Items: values}},
			},
		})
		return tree
	}

	forward := build("alpha", "beta", "gamma")
	backward := build("gamma", "beta", "alpha")

	forwardData, err := Write(forward)
	if err != nil {
		t.Fatal(err)
	}
	backwardData, err := Write(backward)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(forwardData, backwardData) {
		t.Error("unordered container writes depend on element order")
	}
	if !forward.Equal(backward) {
		t.Error("unordered container equality depends on element order")
	}
}

// TestParseRejectsTooSmall tests the minimum size gate.
func TestParseRejectsTooSmall(t *testing.T) {
	if _, err := Parse([]byte("PR")); !errors.Is(err, ErrTooSmall) {
		t.Errorf("expected ErrTooSmall, got %v", err)
	}
}

// TestParseRejectsInvalidMagic tests the magic gate.
func TestParseRejectsInvalidMagic(t *testing.T) {
	if _, err := Parse([]byte("JUNKJUNKJUNK")); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected ErrInvalidMagic, got %v", err)
	}
}

// TestParseFileRejectsTooLargeWithoutReading tests that the size gate fires
// from metadata before the file contents are read.
func TestParseFileRejectsTooLargeWithoutReading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.bin")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// A sparse 60 MiB file: only metadata matters.
	if err := file.Truncate(60 * 1024 * 1024); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = ParseFile(path)
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected a TooLargeError, got %v", err)
	}
	if tooLarge.Size != 60*1024*1024 {
		t.Errorf("unexpected size in error: %d", tooLarge.Size)
	}
}

// TestParseRejectsTruncatedData tests that truncations at arbitrary points
// yield errors rather than panics.
func TestParseRejectsTruncatedData(t *testing.T) {
	data, err := Write(buildTestTree())
	if err != nil {
		t.Fatal(err)
	}
	for length := 4; length < len(data); length += 7 {
		if _, err := Parse(data[:length]); err == nil {
			t.Errorf("expected parse of %d-byte truncation to fail", length)
		}
	}
}

// TestParseRejectsCorruptCounts tests that hostile count fields are rejected
// without enormous allocations.
func TestParseRejectsCorruptCounts(t *testing.T) {
	// PROP, version 3, dependency count of ~4 billion.
	data := []byte("PROP")
	data = append(data, 3, 0, 0, 0)
	data = append(data, 0xff, 0xff, 0xff, 0xff)
	if _, err := Parse(data); err == nil {
		t.Error("expected parse to fail for corrupt dependency count")
	}
}

// TestParseRejectsDuplicateObjects tests the uniqueness invariant on object
// path digests.
func TestParseRejectsDuplicateObjects(t *testing.T) {
	tree := NewTree()
	tree.Objects = []*Object{
		{PathDigest: 7, ClassDigest: 1},
		{PathDigest: 7, ClassDigest: 2},
	}
	data, err := Write(tree)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(data); err == nil {
		t.Error("expected parse to fail for duplicate object digests")
	}
}

// TestParseReportsCrashes tests that deeply nested hostile input surfaces as
// an error (depth bound or crash isolation), never a panic.
func TestParseReportsCrashes(t *testing.T) {
	// Build a value nested far past the depth limit by hand: a chain of
	// optionals each wrapping another optional.
	var payload bytes.Buffer
	depth := maxDepth + 16
	for i := 0; i < depth; i++ {
		payload.WriteByte(KindOptional.wire())
		payload.WriteByte(1)
	}
	payload.WriteByte(uint8(KindU8))
	payload.WriteByte(1)
	payload.WriteByte(42)

	var object bytes.Buffer
	writeU32(&object, 1)                  // path digest
	writeU16(&object, 1)                  // property count
	writeU32(&object, 2)                  // property name
	object.WriteByte(KindOptional.wire()) // property kind
	object.Write(payload.Bytes())         // nested optionals

	var data bytes.Buffer
	data.WriteString("PROP")
	writeU32(&data, 3)
	writeU32(&data, 0)                      // dependencies
	writeU32(&data, 1)                      // object count
	writeU32(&data, 9)                      // class digest
	writeU32(&data, uint32(object.Len()))   // object size
	data.Write(object.Bytes())

	if _, err := Parse(data.Bytes()); err == nil {
		t.Error("expected deeply nested input to fail")
	}
}

// TestInsertReplacesInPlace tests the tree's uniqueness-preserving insert.
func TestInsertReplacesInPlace(t *testing.T) {
	tree := NewTree()
	tree.Insert(&Object{PathDigest: 1, ClassDigest: 10})
	tree.Insert(&Object{PathDigest: 2, ClassDigest: 20})
	if replaced := tree.Insert(&Object{PathDigest: 1, ClassDigest: 30}); !replaced {
		t.Error("expected insert to report replacement")
	}
	if len(tree.Objects) != 2 {
		t.Fatalf("unexpected object count: %d != 2", len(tree.Objects))
	}
	if tree.Objects[0].ClassDigest != 30 {
		t.Error("replacement did not preserve position")
	}
}

// TestDigest tests the 32-bit name digest (FNV-1a over the lowercased
// string).
func TestDigest(t *testing.T) {
	if Digest("Kayn") != Digest("kayn") {
		t.Error("digest is case-sensitive")
	}
	// FNV-1a of the empty string is the offset basis.
	if Digest("") != 0x811c9dc5 {
		t.Errorf("unexpected empty digest: %08x", Digest(""))
	}
}
