package wad

import (
	"bytes"
)

// FileKind identifies the format of a decoded chunk payload, sniffed from
// its leading bytes. It drives extension inference for extensionless
// logical paths.
type FileKind uint

const (
	// KindUnknown indicates an unrecognized payload.
	KindUnknown FileKind = iota
	// KindTexture is the game's native texture format.
	KindTexture
	// KindTextureDDS is a DirectDraw Surface texture.
	KindTextureDDS
	// KindSimpleSkin is a skinned mesh.
	KindSimpleSkin
	// KindSkeleton is a mesh skeleton.
	KindSkeleton
	// KindAnimation is a skeletal animation.
	KindAnimation
	// KindPNG is a PNG image.
	KindPNG
	// KindJPEG is a JPEG image.
	KindJPEG
	// KindWwiseBank is a Wwise audio bank.
	KindWwiseBank
	// KindWwisePackage is a Wwise audio package.
	KindWwisePackage
	// KindMapGeometry is baked map geometry.
	KindMapGeometry
	// KindWorldGeometry is legacy world geometry.
	KindWorldGeometry
	// KindStaticMeshBinary is a binary static mesh.
	KindStaticMeshBinary
	// KindStaticMeshASCII is a text static mesh.
	KindStaticMeshASCII
	// KindStringTable is a localized string table.
	KindStringTable
	// KindPropertyTree is a binary property tree.
	KindPropertyTree
	// KindPropertyTreeOverride is a property-tree patch overlay.
	KindPropertyTreeOverride
	// KindPreload is a preload manifest.
	KindPreload
	// KindLuaBin is compiled Lua.
	KindLuaBin
)

// magicEntry pairs a leading-byte signature with a file kind. Entries with
// an offset match at that offset instead of the payload start.
type magicEntry struct {
	magic  []byte
	offset int
	kind   FileKind
}

// magicTable is the fixed signature table used for payload sniffing. Longer
// signatures come before shorter ones sharing a prefix so that the first
// match wins correctly.
var magicTable = []magicEntry{
	{magic: []byte("r3d2Mesh"), kind: KindStaticMeshBinary},
	{magic: []byte("r3d2sklt"), kind: KindSkeleton},
	{magic: []byte("r3d2anmd"), kind: KindAnimation},
	{magic: []byte("r3d2canm"), kind: KindAnimation},
	{magic: []byte("r3d2"), kind: KindWwisePackage},
	{magic: []byte{0x33, 0x22, 0x11, 0x00}, kind: KindSimpleSkin},
	{magic: []byte{0xc3, 0x4e, 0xfd, 0x22}, offset: 4, kind: KindSkeleton},
	{magic: []byte("PROP"), kind: KindPropertyTree},
	{magic: []byte("PTCH"), kind: KindPropertyTreeOverride},
	{magic: []byte("BKHD"), kind: KindWwiseBank},
	{magic: []byte("WGEO"), kind: KindWorldGeometry},
	{magic: []byte("OEGM"), kind: KindMapGeometry},
	{magic: []byte("[Obj"), kind: KindStaticMeshASCII},
	{magic: []byte("TEX\x00"), kind: KindTexture},
	{magic: []byte("DDS "), kind: KindTextureDDS},
	{magic: []byte{0x89, 'P', 'N', 'G'}, kind: KindPNG},
	{magic: []byte{0xff, 0xd8, 0xff}, kind: KindJPEG},
	{magic: []byte("RST"), kind: KindStringTable},
	{magic: []byte("PreLoad"), kind: KindPreload},
	{magic: []byte{0x1b, 'L', 'u', 'a', 'Q', 0x00, 0x01, 0x04}, kind: KindLuaBin},
}

// IdentifyFileKind sniffs a payload's kind from its leading bytes.
func IdentifyFileKind(data []byte) FileKind {
	for _, entry := range magicTable {
		end := entry.offset + len(entry.magic)
		if len(data) >= end && bytes.Equal(data[entry.offset:end], entry.magic) {
			return entry.kind
		}
	}
	return KindUnknown
}

// Extension returns the canonical file extension for a kind, without the
// leading dot. Kinds with no canonical extension return the empty string.
func (k FileKind) Extension() string {
	switch k {
	case KindTexture:
		return "tex"
	case KindTextureDDS:
		return "dds"
	case KindSimpleSkin:
		return "skn"
	case KindSkeleton:
		return "skl"
	case KindAnimation:
		return "anm"
	case KindPNG:
		return "png"
	case KindJPEG:
		return "jpg"
	case KindWwiseBank:
		return "bnk"
	case KindWwisePackage:
		return "wpk"
	case KindMapGeometry:
		return "mapgeo"
	case KindWorldGeometry:
		return "wgeo"
	case KindStaticMeshBinary:
		return "scb"
	case KindStaticMeshASCII:
		return "sco"
	case KindStringTable:
		return "stringtable"
	case KindPropertyTree, KindPropertyTreeOverride:
		return "bin"
	case KindPreload:
		return "preload"
	case KindLuaBin:
		return "luabin"
	default:
		return ""
	}
}
