package wad

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Reader provides access to a mounted archive: its chunk index and a
// decoder for chunk data segments. A Reader exclusively owns its backing
// file handle; chunks become invalid once the reader is closed. The reader
// never mutates the archive.
type Reader struct {
	// file is the backing archive file.
	file *os.File
	// chunks is the archive index.
	chunks map[uint64]Chunk
	// order records chunk table order for deterministic enumeration.
	order []uint64
}

// Mount opens an archive file, parses its header, and loads the chunk
// table. Duplicate path digests in the table are a hard error.
func Mount(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open archive")
	}

	reader := &Reader{file: file}
	if err := reader.loadIndex(); err != nil {
		file.Close()
		return nil, err
	}
	return reader, nil
}

// loadIndex parses the archive header and chunk table.
func (r *Reader) loadIndex() error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r.file, header); err != nil {
		return errors.Wrap(err, "unable to read archive header")
	}
	if string(header[:2]) != headerMagic {
		return errors.New("archive corrupt: bad magic")
	}
	major, minor := header[2], header[3]
	if major != supportedMajor {
		return &UnsupportedVersionError{Major: major, Minor: minor}
	}

	// Skip the signature block and checksum, then read the chunk count.
	if _, err := r.file.Seek(signatureSize+8, io.SeekCurrent); err != nil {
		return errors.Wrap(err, "unable to seek past signature")
	}
	var count uint32
	if err := binary.Read(r.file, binary.LittleEndian, &count); err != nil {
		return errors.Wrap(err, "unable to read chunk count")
	}

	table := make([]byte, int(count)*chunkRecordSize)
	if _, err := io.ReadFull(r.file, table); err != nil {
		return errors.Wrap(err, "unable to read chunk table")
	}

	r.chunks = make(map[uint64]Chunk, count)
	r.order = make([]uint64, 0, count)
	for i := 0; i < int(count); i++ {
		record := table[i*chunkRecordSize:]
		typeByte := record[20]
		chunk := Chunk{
			PathDigest:       binary.LittleEndian.Uint64(record[0:8]),
			Offset:           binary.LittleEndian.Uint32(record[8:12]),
			CompressedSize:   binary.LittleEndian.Uint32(record[12:16]),
			UncompressedSize: binary.LittleEndian.Uint32(record[16:20]),
			Kind:             CompressionKind(typeByte & 0x0f),
			SubchunkCount:    typeByte >> 4,
			Duplicated:       record[21] != 0,
			SubchunkIndex:    binary.LittleEndian.Uint16(record[22:24]),
			Checksum:         binary.LittleEndian.Uint64(record[24:32]),
		}
		if _, exists := r.chunks[chunk.PathDigest]; exists {
			return errors.Errorf("archive corrupt: duplicate path digest %016x", chunk.PathDigest)
		}
		r.chunks[chunk.PathDigest] = chunk
		r.order = append(r.order, chunk.PathDigest)
	}

	return nil
}

// Close releases the archive file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Chunks returns the archive index. The returned map is owned by the reader
// and must not be mutated.
func (r *Reader) Chunks() map[uint64]Chunk {
	return r.chunks
}

// Digests returns all path digests in chunk table order.
func (r *Reader) Digests() []uint64 {
	return r.order
}

// Get looks up a chunk by its path digest.
func (r *Reader) Get(pathDigest uint64) (Chunk, bool) {
	chunk, ok := r.chunks[pathDigest]
	return chunk, ok
}

// Count returns the number of chunks in the archive.
func (r *Reader) Count() int {
	return len(r.chunks)
}

// Decode reads and decompresses a chunk's payload into a fresh buffer.
func (r *Reader) Decode(chunk Chunk) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.Grow(int(chunk.UncompressedSize))
	if err := r.DecodeInto(chunk, &buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecodeInto reads a chunk's compressed bytes, decompresses them according
// to the chunk's compression kind, verifies the produced length against the
// chunk table, and writes the payload to the sink. Decoding is deterministic
// and size-checked; a length disagreement yields a *SizeMismatchError.
func (r *Reader) DecodeInto(chunk Chunk, sink io.Writer) error {
	compressed := make([]byte, chunk.CompressedSize)
	if _, err := r.file.ReadAt(compressed, int64(chunk.Offset)); err != nil {
		return errors.Wrap(err, "unable to read chunk data")
	}

	var payload []byte
	switch chunk.Kind {
	case CompressionNone:
		payload = compressed
	case CompressionGZip:
		decompressor, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return errors.Wrap(err, "unable to initialize gzip decompressor")
		}
		payload, err = io.ReadAll(decompressor)
		decompressor.Close()
		if err != nil {
			return errors.Wrap(err, "unable to decompress gzip chunk")
		}
	case CompressionZstd, CompressionZstdChunked:
		// Chunked payloads are stored as consecutive zstd frames, which the
		// decoder consumes transparently.
		decompressor, err := zstd.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return errors.Wrap(err, "unable to initialize zstd decompressor")
		}
		payload, err = io.ReadAll(decompressor)
		decompressor.Close()
		if err != nil {
			return errors.Wrap(err, "unable to decompress zstd chunk")
		}
	case CompressionSatellite:
		return errors.New("satellite chunks are not decodable")
	default:
		return errors.Errorf("unknown compression kind %d", chunk.Kind)
	}

	if uint32(len(payload)) != chunk.UncompressedSize {
		return &SizeMismatchError{Expected: chunk.UncompressedSize, Got: uint32(len(payload))}
	}

	if _, err := sink.Write(payload); err != nil {
		return errors.Wrap(err, "unable to write payload")
	}
	return nil
}
