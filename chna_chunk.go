package bw64

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	chnaUIDLen      = 12
	chnaTrackRefLen = 14
	chnaPackRefLen  = 11
	chnaEntryLen    = 40
	// MaxChnaUIDs is the AudioID capacity of the chna placeholder a Writer
	// reserves before the data chunk.
	MaxChnaUIDs = 1024
)

var (
	errChnaTooSmall       = errors.New("illegal chna chunk size")
	errChnaNumUids        = errors.New("chna numUids does not match entries")
	errChnaNumTracks      = errors.New("chna numTracks does not match entries")
	errChnaZeroTrackIndex = errors.New("chna trackIndex must not be 0")
)

// AudioID maps a track to its ADM audio object references. UID, TrackRef
// and PackRef are fixed-width ASCII on disk (12, 14 and 11 bytes); shorter
// values are null padded when serialized, longer values are rejected.
type AudioID struct {
	TrackIndex uint16
	UID        string
	TrackRef   string
	PackRef    string
}

// ChnaChunk is the channel allocation chunk, a sequence of AudioID records.
type ChnaChunk struct {
	AudioIDs []AudioID
}

// ID returns 'chna'.
func (c *ChnaChunk) ID() [4]byte { return CIDChna }

// Size returns the payload size in bytes.
func (c *ChnaChunk) Size() uint64 {
	return 4 + uint64(len(c.AudioIDs))*chnaEntryLen
}

// AddAudioID appends a record.
func (c *ChnaChunk) AddAudioID(id AudioID) {
	c.AudioIDs = append(c.AudioIDs, id)
}

// NumUIDs returns the number of AudioID records.
func (c *ChnaChunk) NumUIDs() int { return len(c.AudioIDs) }

// NumTracks returns the number of distinct track indices among the records.
func (c *ChnaChunk) NumTracks() int {
	seen := make(map[uint16]struct{}, len(c.AudioIDs))
	for _, id := range c.AudioIDs {
		seen[id.TrackIndex] = struct{}{}
	}

	return len(seen)
}

func (c *ChnaChunk) encode(w io.Writer) error {
	err := binary.Write(w, binary.LittleEndian, uint16(c.NumTracks()))
	if err != nil {
		return fmt.Errorf("failed to write chna numTracks: %w", err)
	}

	err = binary.Write(w, binary.LittleEndian, uint16(c.NumUIDs()))
	if err != nil {
		return fmt.Errorf("failed to write chna numUids: %w", err)
	}

	for _, id := range c.AudioIDs {
		err := encodeAudioID(w, id)
		if err != nil {
			return err
		}
	}

	return nil
}

func encodeAudioID(w io.Writer, id AudioID) error {
	if id.TrackIndex == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errChnaZeroTrackIndex)
	}

	err := binary.Write(w, binary.LittleEndian, id.TrackIndex)
	if err != nil {
		return fmt.Errorf("failed to write audioId trackIndex: %w", err)
	}

	fields := []struct {
		name  string
		value string
		width int
	}{
		{"uid", id.UID, chnaUIDLen},
		{"trackRef", id.TrackRef, chnaTrackRefLen},
		{"packRef", id.PackRef, chnaPackRefLen},
	}

	for _, field := range fields {
		if len(field.value) > field.width {
			return fmt.Errorf("%w: audioId %s %q exceeds %d bytes",
				ErrInvalidArgument, field.name, field.value, field.width)
		}

		raw := make([]byte, field.width)
		copy(raw, field.value)

		_, err := w.Write(raw)
		if err != nil {
			return fmt.Errorf("failed to write audioId %s: %w", field.name, err)
		}
	}

	_, err = w.Write([]byte{0})
	if err != nil {
		return fmt.Errorf("failed to write audioId padding: %w", err)
	}

	return nil
}

func parseChnaChunk(r io.Reader, size uint64) (*ChnaChunk, error) {
	if size < 4 {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errChnaTooSmall)
	}

	var numTracks, numUids uint16

	err := binary.Read(r, binary.LittleEndian, &numTracks)
	if err != nil {
		return nil, fmt.Errorf("failed to read chna numTracks: %w", err)
	}

	err = binary.Read(r, binary.LittleEndian, &numUids)
	if err != nil {
		return nil, fmt.Errorf("failed to read chna numUids: %w", err)
	}

	chunk := &ChnaChunk{}

	for i := 0; i < int(numUids); i++ {
		id, err := parseAudioID(r)
		if err != nil {
			return nil, err
		}

		chunk.AddAudioID(id)
	}

	if chunk.NumUIDs() != int(numUids) {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errChnaNumUids)
	}

	if chunk.NumTracks() != int(numTracks) {
		return nil, fmt.Errorf("%w: %w", ErrFormat, errChnaNumTracks)
	}

	return chunk, nil
}

func parseAudioID(r io.Reader) (AudioID, error) {
	var id AudioID

	err := binary.Read(r, binary.LittleEndian, &id.TrackIndex)
	if err != nil {
		return id, fmt.Errorf("failed to read audioId trackIndex: %w", err)
	}

	raw := make([]byte, chnaUIDLen+chnaTrackRefLen+chnaPackRefLen+1)

	_, err = io.ReadFull(r, raw)
	if err != nil {
		return id, fmt.Errorf("failed to read audioId references: %w", err)
	}

	id.UID = string(raw[:chnaUIDLen])
	id.TrackRef = string(raw[chnaUIDLen : chnaUIDLen+chnaTrackRefLen])
	id.PackRef = string(raw[chnaUIDLen+chnaTrackRefLen : chnaUIDLen+chnaTrackRefLen+chnaPackRefLen])

	return id, nil
}
