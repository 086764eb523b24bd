package bw64

import (
	"fmt"
	"io"
)

// ChunkParser decodes a chunk payload. The reader is positioned at the
// first byte of the payload and limited to the declared size.
type ChunkParser func(r io.Reader, size uint64) (Chunk, error)

// ChunkRegistry resolves chunk IDs to parsers.
type ChunkRegistry struct {
	parsers map[[4]byte]ChunkParser
}

func newDefaultChunkRegistry() *ChunkRegistry {
	registry := &ChunkRegistry{parsers: map[[4]byte]ChunkParser{}}

	registry.Register(CIDDs64, func(r io.Reader, size uint64) (Chunk, error) {
		return parseDataSize64Chunk(r, size)
	})
	registry.Register(CIDFmt, func(r io.Reader, size uint64) (Chunk, error) {
		return parseFmtChunk(r, size)
	})
	registry.Register(CIDChna, func(r io.Reader, size uint64) (Chunk, error) {
		return parseChnaChunk(r, size)
	})
	registry.Register(CIDAxml, func(r io.Reader, size uint64) (Chunk, error) {
		return parseAxmlChunk(r, size)
	})
	registry.Register(CIDBext, func(r io.Reader, size uint64) (Chunk, error) {
		return parseBextChunk(r, size)
	})
	registry.Register(CIDCue, func(r io.Reader, size uint64) (Chunk, error) {
		return parseCueChunk(r, size)
	})
	registry.Register(CIDLabl, func(r io.Reader, size uint64) (Chunk, error) {
		return parseLabelChunk(r, size)
	})
	registry.Register(CIDList, func(r io.Reader, size uint64) (Chunk, error) {
		return parseListChunk(r, size)
	})

	return registry
}

// Register installs a parser for a chunk ID, replacing any existing one.
func (r *ChunkRegistry) Register(id [4]byte, parser ChunkParser) {
	if r == nil || parser == nil {
		return
	}

	if r.parsers == nil {
		r.parsers = map[[4]byte]ChunkParser{}
	}

	r.parsers[id] = parser
}

// Parse materializes the chunk described by header from the stream. Chunk
// IDs without a registered parser are preserved as UnknownChunk.
func (r *ChunkRegistry) Parse(header ChunkHeader, rd io.Reader) (Chunk, error) {
	if header.ID == CIDData {
		return &DataChunk{size: header.Size}, nil
	}

	limited := io.LimitReader(rd, int64(header.Size))

	parser, ok := r.parsers[header.ID]
	if !ok {
		return parseUnknownChunk(limited, header.ID, header.Size)
	}

	chunk, err := parser(limited, header.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q chunk: %w", fourCCStr(header.ID), err)
	}

	return chunk, nil
}
