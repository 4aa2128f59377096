package text

import (
	"strings"
	"testing"

	"github.com/ritoshark/flint/pkg/bin"
)

// buildTestTree constructs a tree covering every kind the text form has to
// render.
func buildTestTree() *bin.Tree {
	tree := bin.NewTree()
	tree.Dependencies = []string{"DATA/Characters/Kayn/Kayn.bin"}
	tree.Insert(&bin.Object{
		PathDigest:  bin.Digest("Characters/Kayn/Skins/Skin0"),
		ClassDigest: bin.Digest("SkinCharacterDataProperties"),
		Properties: []bin.Property{
			{Name: bin.Digest("championSkinName"), Value: bin.String("Kayn \"Base\"")},
			{Name: bin.Digest("skinClassification"), Value: bin.U32(1)},
			{Name: bin.Digest("healthScale"), Value: bin.F32(1.25)},
			{Name: bin.Digest("damageOffset"), Value: bin.I32(-42)},
			{Name: bin.Digest("spawnPoint"), Value: bin.Vector3{1.5, -2.25, 0.125}},
			{Name: bin.Digest("tint"), Value: bin.Color{255, 128, 0, 255}},
			{Name: bin.Digest("visible"), Value: bin.Bool(true)},
			{Name: bin.Digest("flagged"), Value: bin.BitBool(false)},
			{Name: bin.Digest("texture"), Value: bin.WadLink(0x1a2b3c4d5e6f7a8b)},
			{Name: bin.Digest("theme"), Value: bin.Hash(0xdeadbeef)},
			{Name: bin.Digest("parent"), Value: bin.ObjectLink(0x01020304)},
			{Name: bin.Digest("bankUnits"), Value: &bin.Container{
				Item:  bin.KindString,
				Items: []bin.Value{bin.String("assets/a.bnk"), bin.String("assets/b.bnk")},
			}},
			// Canonical (serialized-byte) order, so that text output is
			// stable across a binary round-trip.
			{Name: bin.Digest("tags"), Value: &bin.UnorderedContainer{
				Item:  bin.KindU32,
				Items: []bin.Value{bin.U32(1), bin.U32(3)},
			}},
			{Name: bin.Digest("audio"), Value: &bin.Struct{
				Class: bin.Digest("SkinAudioProperties"),
				Properties: []bin.Property{
					{Name: bin.Digest("volume"), Value: bin.F32(0.5)},
				},
			}},
			{Name: bin.Digest("emptyAudio"), Value: &bin.Struct{Class: 0}},
			{Name: bin.Digest("overrides"), Value: &bin.Embedded{
				Class: bin.Digest("ParticleOverrides"),
				Properties: []bin.Property{
					{Name: bin.Digest("intensity"), Value: bin.U8(9)},
				},
			}},
			{Name: bin.Digest("scale"), Value: &bin.Optional{Item: bin.KindF32, Value: bin.F32(2)}},
			{Name: bin.Digest("missing"), Value: &bin.Optional{Item: bin.KindU32}},
			{Name: bin.Digest("resources"), Value: &bin.Map{
				KeyKind:   bin.KindHash,
				ValueKind: bin.KindString,
				Entries: []bin.MapEntry{
					bin.NewMapEntry(bin.Hash(7), bin.String("assets/c.tex")),
				},
			}},
		},
	})
	return tree
}

// TestTextRoundTrip tests that the text form round-trips with the in-memory
// tree.
func TestTextRoundTrip(t *testing.T) {
	original := buildTestTree()
	rendered, err := Marshal(original)
	if err != nil {
		t.Fatal("unable to marshal tree:", err)
	}
	parsed, err := Unmarshal(rendered)
	if err != nil {
		t.Fatalf("unable to parse rendered text: %v\n%s", err, rendered)
	}
	if !original.Equal(parsed) {
		t.Errorf("parsed tree differs from original\n%s", rendered)
	}
}

// TestTextRoundTripThroughBinary tests text -> tree -> binary -> tree ->
// text stability.
func TestTextRoundTripThroughBinary(t *testing.T) {
	original := buildTestTree()
	rendered, err := Marshal(original)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Unmarshal(rendered)
	if err != nil {
		t.Fatal(err)
	}
	data, err := bin.Write(parsed)
	if err != nil {
		t.Fatal(err)
	}
	reparsed, err := bin.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(reparsed)
	if err != nil {
		t.Fatal(err)
	}
	if rendered != second {
		t.Error("text form is not stable across a binary round-trip")
	}
}

// fixtureProvider is a map-backed Provider for rendering tests.
type fixtureProvider struct {
	entries map[uint32]string
	fields  map[uint32]string
	types   map[uint32]string
	hashes  map[uint32]string
	paths   map[uint64]string
}

func (p *fixtureProvider) ResolveEntry(digest uint32) (string, bool) {
	name, ok := p.entries[digest]
	return name, ok
}

func (p *fixtureProvider) ResolveField(digest uint32) (string, bool) {
	name, ok := p.fields[digest]
	return name, ok
}

func (p *fixtureProvider) ResolveType(digest uint32) (string, bool) {
	name, ok := p.types[digest]
	return name, ok
}

func (p *fixtureProvider) ResolveHash(digest uint32) (string, bool) {
	name, ok := p.hashes[digest]
	return name, ok
}

func (p *fixtureProvider) ResolvePath(digest uint64) (string, bool) {
	name, ok := p.paths[digest]
	return name, ok
}

// TestMarshalWithResolvedNames tests that resolved names render in place of
// hex digests and that parsing maps them back to identical digests.
func TestMarshalWithResolvedNames(t *testing.T) {
	tree := bin.NewTree()
	tree.Insert(&bin.Object{
		PathDigest:  bin.Digest("Characters/Kayn/Skins/Skin0"),
		ClassDigest: bin.Digest("SkinCharacterDataProperties"),
		Properties: []bin.Property{
			{Name: bin.Digest("championSkinName"), Value: bin.String("Kayn Base")},
		},
	})
	provider := &fixtureProvider{
		entries: map[uint32]string{bin.Digest("Characters/Kayn/Skins/Skin0"): "Characters/Kayn/Skins/Skin0"},
		types:   map[uint32]string{bin.Digest("SkinCharacterDataProperties"): "SkinCharacterDataProperties"},
		fields:  map[uint32]string{bin.Digest("championSkinName"): "championSkinName"},
	}

	rendered, err := MarshalWith(tree, provider)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rendered, "SkinCharacterDataProperties {") {
		t.Errorf("class name not resolved:\n%s", rendered)
	}
	if !strings.Contains(rendered, "championSkinName: string") {
		t.Errorf("field name not resolved:\n%s", rendered)
	}
	if !strings.Contains(rendered, `"Characters/Kayn/Skins/Skin0"`) {
		t.Errorf("entry name not resolved:\n%s", rendered)
	}

	parsed, err := Unmarshal(rendered)
	if err != nil {
		t.Fatal(err)
	}
	if !tree.Equal(parsed) {
		t.Error("named round-trip altered the tree")
	}
}

// TestUnmarshalRejectsMalformed tests parser error cases.
func TestUnmarshalRejectsMalformed(t *testing.T) {
	inputs := []string{
		`type: string = "BOGUS"`,
		`entries: map[hash,embed] = { 0x1 = `,
		`entries: map[hash,embed] = { 0x1 = Name { f: wat = 1 } }`,
		`version: u32 = notanumber`,
		`mystery: u32 = 5`,
	}
	for _, input := range inputs {
		if _, err := Unmarshal(input); err == nil {
			t.Errorf("expected parse failure for %q", input)
		}
	}
}

// TestUnmarshalDuplicateEntries tests that duplicate entry digests are
// rejected.
func TestUnmarshalDuplicateEntries(t *testing.T) {
	input := `
entries: map[hash,embed] = {
    0x00000001 = Thing {
    }
    0x00000001 = Thing {
    }
}
`
	if _, err := Unmarshal(input); err == nil {
		t.Error("expected duplicate entries to fail")
	}
}
