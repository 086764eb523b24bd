package bw64

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

const cuePointLen = 24

var (
	errCueTooSmall      = errors.New("cue chunk too small")
	errCueSizeMismatch  = errors.New("incorrect cue chunk size")
	errCueDuplicateID   = errors.New("cue point ID already exists")
	errCueNotReserved   = errors.New("no cue chunk reserved, create writer with MaxMarkers > 0")
	errCuePointNotFound = errors.New("cue point not found")
)

// CuePoint is a time-domain marker. The Label is carried in memory for
// ergonomics; on disk it is serialized separately as a 'labl' sub-chunk of a
// LIST/adtl chunk, keyed by the cue point ID.
type CuePoint struct {
	ID           uint32
	Position     uint32
	DataChunkID  [4]byte
	ChunkStart   uint32
	BlockStart   uint32
	SampleOffset uint32
	Label        string
}

// CueChunk is an ordered sequence of cue points, kept sorted by position.
type CueChunk struct {
	cuePoints []CuePoint
}

// NewCueChunk builds a cue chunk from existing points. The points are kept
// in the given order; use AddCuePoint for sorted, duplicate-checked inserts.
func NewCueChunk(cuePoints []CuePoint) *CueChunk {
	return &CueChunk{cuePoints: append([]CuePoint(nil), cuePoints...)}
}

// ID returns 'cue '.
func (c *CueChunk) ID() [4]byte { return CIDCue }

// Size returns the payload size in bytes.
func (c *CueChunk) Size() uint64 {
	return 4 + uint64(len(c.cuePoints))*cuePointLen
}

// CuePoints returns a copy of the cue points.
func (c *CueChunk) CuePoints() []CuePoint {
	return append([]CuePoint(nil), c.cuePoints...)
}

// AddMarker inserts a cue point at the given sample position, pointing into
// the data chunk. The insert keeps the chunk sorted by position and rejects
// duplicate IDs.
func (c *CueChunk) AddMarker(id uint32, position uint32, label string) error {
	return c.AddCuePoint(CuePoint{
		ID:           id,
		Position:     position,
		DataChunkID:  CIDData,
		SampleOffset: position,
		Label:        label,
	})
}

// AddCuePoint inserts an existing cue point, keeping the chunk sorted by
// position. Duplicate IDs are rejected.
func (c *CueChunk) AddCuePoint(cue CuePoint) error {
	for _, existing := range c.cuePoints {
		if existing.ID == cue.ID {
			return fmt.Errorf("%w: %w (%d)", ErrInvalidArgument, errCueDuplicateID, cue.ID)
		}
	}

	c.cuePoints = append(c.cuePoints, cue)
	sort.SliceStable(c.cuePoints, func(i, j int) bool {
		return c.cuePoints[i].Position < c.cuePoints[j].Position
	})

	return nil
}

// SetLabel updates the label of an existing cue point.
func (c *CueChunk) SetLabel(id uint32, label string) error {
	for i := range c.cuePoints {
		if c.cuePoints[i].ID == id {
			c.cuePoints[i].Label = label
			return nil
		}
	}

	return fmt.Errorf("%w: %w (%d)", ErrInvalidArgument, errCuePointNotFound, id)
}

// RemoveCuePoint deletes the cue point with the given ID, if present.
func (c *CueChunk) RemoveCuePoint(id uint32) {
	out := c.cuePoints[:0]

	for _, cue := range c.cuePoints {
		if cue.ID != id {
			out = append(out, cue)
		}
	}

	c.cuePoints = out
}

// labels returns the non-empty labels keyed by cue point ID, ordered by ID
// so label serialization is deterministic.
func (c *CueChunk) labels() []LabelChunk {
	out := make([]LabelChunk, 0, len(c.cuePoints))

	for _, cue := range c.cuePoints {
		if cue.Label != "" {
			out = append(out, LabelChunk{CuePointID: cue.ID, Label: cue.Label})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CuePointID < out[j].CuePointID })

	return out
}

func (c *CueChunk) clear() {
	c.cuePoints = nil
}

func (c *CueChunk) encode(w io.Writer) error {
	err := binary.Write(w, binary.LittleEndian, uint32(len(c.cuePoints)))
	if err != nil {
		return fmt.Errorf("failed to write cue point count: %w", err)
	}

	for _, cue := range c.cuePoints {
		fields := []any{
			cue.ID,
			cue.Position,
			cue.DataChunkID,
			cue.ChunkStart,
			cue.BlockStart,
			cue.SampleOffset,
		}

		for _, field := range fields {
			err := binary.Write(w, binary.LittleEndian, field)
			if err != nil {
				return fmt.Errorf("failed to write cue point: %w", err)
			}
		}
	}

	return nil
}

func parseCueChunk(r io.Reader, size uint64) (*CueChunk, error) {
	if size < 4 {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errCueTooSmall)
	}

	var count uint32

	err := binary.Read(r, binary.LittleEndian, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue point count: %w", err)
	}

	if size != 4+uint64(count)*cuePointLen {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errCueSizeMismatch)
	}

	chunk := &CueChunk{cuePoints: make([]CuePoint, count)}

	for i := range chunk.cuePoints {
		cue := &chunk.cuePoints[i]

		fields := []any{
			&cue.ID,
			&cue.Position,
			&cue.DataChunkID,
			&cue.ChunkStart,
			&cue.BlockStart,
			&cue.SampleOffset,
		}

		for _, field := range fields {
			err := binary.Read(r, binary.LittleEndian, field)
			if err != nil {
				return nil, fmt.Errorf("failed to read cue point: %w", err)
			}
		}
	}

	return chunk, nil
}
