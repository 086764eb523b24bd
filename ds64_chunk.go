package bw64

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	ds64HeaderLen     = 28
	ds64TableEntryLen = 12
)

var (
	errDs64TooSmall   = errors.New("illegal ds64 chunk size")
	errDs64TableShort = errors.New("ds64 chunk too short to hold table entries")
)

type ds64TableEntry struct {
	id   [4]byte
	size uint64
}

// DataSize64Chunk carries the 64-bit sizes that do not fit the 32-bit chunk
// headers: the outer group size, the data chunk size, and a table for any
// other oversized chunk.
type DataSize64Chunk struct {
	BW64Size  uint64
	DataSize  uint64
	DummySize uint64

	table []ds64TableEntry
}

// NewDataSize64Chunk builds a ds64 chunk with an empty table.
func NewDataSize64Chunk(bw64Size, dataSize uint64) *DataSize64Chunk {
	return &DataSize64Chunk{BW64Size: bw64Size, DataSize: dataSize}
}

// ID returns 'ds64'.
func (c *DataSize64Chunk) ID() [4]byte { return CIDDs64 }

// Size returns the payload size in bytes.
func (c *DataSize64Chunk) Size() uint64 {
	return ds64HeaderLen + uint64(len(c.table))*ds64TableEntryLen
}

// TableLength returns the number of table entries.
func (c *DataSize64Chunk) TableLength() int { return len(c.table) }

// SetChunkSize records the true size of an oversized chunk.
func (c *DataSize64Chunk) SetChunkSize(id [4]byte, size uint64) {
	for i := range c.table {
		if c.table[i].id == id {
			c.table[i].size = size
			return
		}
	}

	c.table = append(c.table, ds64TableEntry{id: id, size: size})
}

// ChunkSize looks up the true size of a chunk in the table.
func (c *DataSize64Chunk) ChunkSize(id [4]byte) (uint64, bool) {
	for _, entry := range c.table {
		if entry.id == id {
			return entry.size, true
		}
	}

	return 0, false
}

func (c *DataSize64Chunk) encode(w io.Writer) error {
	fields := []any{c.BW64Size, c.DataSize, c.DummySize, uint32(len(c.table))}
	for _, entry := range c.table {
		fields = append(fields, entry.id, entry.size)
	}

	for _, field := range fields {
		err := binary.Write(w, binary.LittleEndian, field)
		if err != nil {
			return fmt.Errorf("failed to write ds64 chunk: %w", err)
		}
	}

	return nil
}

func parseDataSize64Chunk(r io.Reader, size uint64) (*DataSize64Chunk, error) {
	if size < ds64HeaderLen {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errDs64TooSmall)
	}

	chunk := &DataSize64Chunk{}

	var tableLength uint32

	fields := []any{&chunk.BW64Size, &chunk.DataSize, &chunk.DummySize, &tableLength}
	for _, field := range fields {
		err := binary.Read(r, binary.LittleEndian, field)
		if err != nil {
			return nil, fmt.Errorf("failed to read ds64 chunk: %w", err)
		}
	}

	minSize := uint64(ds64HeaderLen) + uint64(tableLength)*ds64TableEntryLen
	if size < minSize {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errDs64TableShort)
	}

	for i := uint32(0); i < tableLength; i++ {
		var entry ds64TableEntry

		_, err := io.ReadFull(r, entry.id[:])
		if err != nil {
			return nil, fmt.Errorf("failed to read ds64 table entry id: %w", err)
		}

		err = binary.Read(r, binary.LittleEndian, &entry.size)
		if err != nil {
			return nil, fmt.Errorf("failed to read ds64 table entry size: %w", err)
		}

		chunk.SetChunkSize(entry.id, entry.size)
	}

	// skip junk padding up to the declared chunk size
	if size > minSize {
		_, err := io.CopyN(io.Discard, r, int64(size-minSize))
		if err != nil {
			return nil, fmt.Errorf("failed to skip ds64 junk data: %w", err)
		}
	}

	return chunk, nil
}
