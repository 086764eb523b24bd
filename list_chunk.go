package bw64

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	errLablTooSmall = errors.New("label chunk too small")
	errListTooSmall = errors.New("LIST chunk too small")
)

// LabelChunk associates a human-readable label with a cue point. On disk it
// lives as a 'labl' sub-chunk of a LIST/adtl chunk.
type LabelChunk struct {
	CuePointID uint32
	Label      string
}

// ID returns 'labl'.
func (c *LabelChunk) ID() [4]byte { return CIDLabl }

// Size returns the payload size in bytes, including the null terminator.
func (c *LabelChunk) Size() uint64 {
	return 4 + uint64(len(c.Label)) + 1
}

func (c *LabelChunk) encode(w io.Writer) error {
	err := binary.Write(w, binary.LittleEndian, c.CuePointID)
	if err != nil {
		return fmt.Errorf("failed to write label cue point ID: %w", err)
	}

	_, err = w.Write(append([]byte(c.Label), 0))
	if err != nil {
		return fmt.Errorf("failed to write label text: %w", err)
	}

	return nil
}

func parseLabelChunk(r io.Reader, size uint64) (*LabelChunk, error) {
	if size < 5 {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errLablTooSmall)
	}

	chunk := &LabelChunk{}

	err := binary.Read(r, binary.LittleEndian, &chunk.CuePointID)
	if err != nil {
		return nil, fmt.Errorf("failed to read label cue point ID: %w", err)
	}

	raw := make([]byte, size-4)

	_, err = io.ReadFull(r, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read label text: %w", err)
	}

	chunk.Label = nullTermStr(raw)

	return chunk, nil
}

// ListChunk groups sub-chunks under a list type. Lists of type 'adtl' carry
// marker labels as 'labl' sub-chunks.
type ListChunk struct {
	ListType  [4]byte
	SubChunks []Chunk
}

// NewAdtlChunk builds a LIST/adtl chunk from the given sub-chunks.
func NewAdtlChunk(subChunks ...Chunk) *ListChunk {
	return &ListChunk{ListType: CIDAdtl, SubChunks: subChunks}
}

// ID returns 'LIST'.
func (c *ListChunk) ID() [4]byte { return CIDList }

// Size returns the payload size in bytes, including sub-chunk pad bytes.
func (c *ListChunk) Size() uint64 {
	size := uint64(4)

	for _, sub := range c.SubChunks {
		size += 8 + sub.Size()
		if sub.Size()%2 == 1 {
			size++
		}
	}

	return size
}

// Labels returns all 'labl' sub-chunks.
func (c *ListChunk) Labels() []*LabelChunk {
	var out []*LabelChunk

	for _, sub := range c.SubChunks {
		if label, ok := sub.(*LabelChunk); ok {
			out = append(out, label)
		}
	}

	return out
}

func (c *ListChunk) encode(w io.Writer) error {
	_, err := w.Write(c.ListType[:])
	if err != nil {
		return fmt.Errorf("failed to write LIST type: %w", err)
	}

	for _, sub := range c.SubChunks {
		id := sub.ID()

		_, err := w.Write(id[:])
		if err != nil {
			return fmt.Errorf("failed to write %q sub-chunk ID: %w", fourCCStr(id), err)
		}

		err = binary.Write(w, binary.LittleEndian, uint32(sub.Size()))
		if err != nil {
			return fmt.Errorf("failed to write %q sub-chunk size: %w", fourCCStr(id), err)
		}

		err = sub.encode(w)
		if err != nil {
			return err
		}

		if sub.Size()%2 == 1 {
			_, err := w.Write([]byte{0})
			if err != nil {
				return fmt.Errorf("failed to write %q sub-chunk padding: %w", fourCCStr(id), err)
			}
		}
	}

	return nil
}

func parseListChunk(r io.Reader, size uint64) (*ListChunk, error) {
	if size < 4 {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errListTooSmall)
	}

	chunk := &ListChunk{}

	_, err := io.ReadFull(r, chunk.ListType[:])
	if err != nil {
		return nil, fmt.Errorf("failed to read LIST type: %w", err)
	}

	bytesRead := uint64(4)

	for bytesRead < size {
		var (
			subID   [4]byte
			subSize uint32
		)

		_, err := io.ReadFull(r, subID[:])
		if err != nil {
			return nil, fmt.Errorf("failed to read sub-chunk ID: %w", err)
		}

		err = binary.Read(r, binary.LittleEndian, &subSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read sub-chunk size: %w", err)
		}

		bytesRead += 8

		var sub Chunk

		if subID == CIDLabl {
			sub, err = parseLabelChunk(r, uint64(subSize))
			if err != nil {
				return nil, err
			}
		} else {
			// unknown sub-chunks are kept as placeholders, bytes skipped
			_, err := io.CopyN(io.Discard, r, int64(subSize))
			if err != nil {
				return nil, fmt.Errorf("failed to skip %q sub-chunk: %w", fourCCStr(subID), err)
			}

			sub = &UnknownChunk{ChunkID: subID}
		}

		bytesRead += uint64(subSize)

		chunk.SubChunks = append(chunk.SubChunks, sub)

		if subSize%2 == 1 {
			_, err := io.CopyN(io.Discard, r, 1)
			if err != nil {
				return nil, fmt.Errorf("failed to skip sub-chunk padding: %w", err)
			}

			bytesRead++
		}
	}

	return chunk, nil
}
