// Package wad provides reading, decoding, and selective extraction of the
// game's WAD asset archives: a binary container indexed by 64-bit digests
// over lowercased logical paths, with per-chunk compression.
package wad

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// headerMagic is the two-byte archive magic.
	headerMagic = "RW"
	// supportedMajor is the only archive major version the reader mounts.
	supportedMajor = 3
	// signatureSize is the size of the version 3 header signature block.
	signatureSize = 256
	// chunkRecordSize is the size of one version 3 chunk table record.
	chunkRecordSize = 32
)

// CompressionKind identifies the compression applied to a chunk's data
// segment.
type CompressionKind uint8

const (
	// CompressionNone indicates an uncompressed data segment.
	CompressionNone CompressionKind = 0
	// CompressionGZip indicates a gzip-compressed data segment.
	CompressionGZip CompressionKind = 1
	// CompressionSatellite indicates that the data segment is a redirection
	// to a file shipped outside the archive. The reader does not follow
	// redirections.
	CompressionSatellite CompressionKind = 2
	// CompressionZstd indicates a zstd-compressed data segment.
	CompressionZstd CompressionKind = 3
	// CompressionZstdChunked indicates a zstd-compressed data segment split
	// into subchunk frames.
	CompressionZstdChunked CompressionKind = 4
)

// String provides a human-readable representation of a compression kind.
func (k CompressionKind) String() string {
	switch k {
	case CompressionNone:
		return "none"
	case CompressionGZip:
		return "gzip"
	case CompressionSatellite:
		return "satellite"
	case CompressionZstd:
		return "zstd"
	case CompressionZstdChunked:
		return "zstd-chunked"
	default:
		return "unknown"
	}
}

// Chunk describes a single entry in an archive's chunk table. Chunks are
// views into the archive: they are only decodable while the owning Reader
// remains open.
type Chunk struct {
	// PathDigest is the 64-bit digest of the chunk's logical path.
	PathDigest uint64
	// Offset is the chunk data segment's offset within the archive.
	Offset uint32
	// CompressedSize is the size of the stored data segment.
	CompressedSize uint32
	// UncompressedSize is the expected size of the decoded payload.
	UncompressedSize uint32
	// Kind is the compression applied to the data segment.
	Kind CompressionKind
	// SubchunkCount is the number of subchunk frames for chunked
	// compression.
	SubchunkCount uint8
	// SubchunkIndex is the first subchunk frame index.
	SubchunkIndex uint16
	// Duplicated indicates that the data segment is shared with another
	// chunk.
	Duplicated bool
	// Checksum is the integrity digest over the stored data segment.
	Checksum uint64
}

// SizeMismatchError indicates that a chunk decoded to a payload whose length
// differs from the chunk table's uncompressed size.
type SizeMismatchError struct {
	// Expected is the size recorded in the chunk table.
	Expected uint32
	// Got is the size actually produced by decoding.
	Got uint32
}

// Error implements error.Error.
func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("decoded size mismatch: expected %d bytes, got %d", e.Expected, e.Got)
}

// UnsupportedVersionError indicates an archive whose version the reader does
// not mount.
type UnsupportedVersionError struct {
	// Major is the archive's major version.
	Major uint8
	// Minor is the archive's minor version.
	Minor uint8
}

// Error implements error.Error.
func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported archive version %d.%d", e.Major, e.Minor)
}

// PathDigest computes the 64-bit digest of a logical path as used by the
// archive index: xxh64 over the lowercased, forward-slash-normalized path.
func PathDigest(logicalPath string) uint64 {
	normalized := strings.ToLower(strings.ReplaceAll(logicalPath, "\\", "/"))
	return xxhash.Sum64String(normalized)
}
