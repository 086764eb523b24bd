package bw64

import (
	"fmt"
	"io"
	"math"
)

// Chunk is a typed RIFF chunk. The payload size excludes the 8-byte header;
// chunks with odd payloads are followed by a pad byte on disk that is not
// part of the size.
type Chunk interface {
	// ID returns the four-character code of the chunk.
	ID() [4]byte
	// Size returns the payload size in bytes.
	Size() uint64

	encode(w io.Writer) error
}

// ChunkHeader describes a chunk's location inside the file. Size carries the
// resolved 64-bit value; the on-disk header stores uint32 and defers to the
// ds64 table for anything larger.
type ChunkHeader struct {
	ID       [4]byte
	Size     uint64
	Position uint64
}

// DataChunk tracks the size of the sample payload. The payload itself is
// streamed and never buffered as a chunk object.
type DataChunk struct {
	size uint64
}

// ID returns 'data'.
func (c *DataChunk) ID() [4]byte { return CIDData }

// Size returns the payload size in bytes.
func (c *DataChunk) Size() uint64 { return c.size }

func (c *DataChunk) encode(_ io.Writer) error { return nil }

// UnknownChunk retains the raw bytes of a chunk the package has no decoder
// for, so the chunk can be round-tripped verbatim.
type UnknownChunk struct {
	ChunkID [4]byte
	Data    []byte
}

// ID returns the four-character code of the preserved chunk.
func (c *UnknownChunk) ID() [4]byte { return c.ChunkID }

// Size returns the payload size in bytes.
func (c *UnknownChunk) Size() uint64 { return uint64(len(c.Data)) }

func (c *UnknownChunk) encode(w io.Writer) error {
	_, err := w.Write(c.Data)
	if err != nil {
		return fmt.Errorf("failed to write %q chunk payload: %w", fourCCStr(c.ChunkID), err)
	}

	return nil
}

func parseUnknownChunk(r io.Reader, id [4]byte, size uint64) (*UnknownChunk, error) {
	data := make([]byte, size)

	_, err := io.ReadFull(r, data)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q chunk: %w", fourCCStr(id), err)
	}

	return &UnknownChunk{ChunkID: id, Data: data}, nil
}

// chunkSizeForHeader clamps a 64-bit payload size to the 32-bit header
// field; the true size of an oversized chunk lives in the ds64 table.
func chunkSizeForHeader(size uint64) uint32 {
	if size >= math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(size)
}
