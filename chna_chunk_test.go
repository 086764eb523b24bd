package bw64

import (
	"bytes"
	"errors"
	"testing"
)

func testAudioID(trackIndex uint16, n int) AudioID {
	return AudioID{
		TrackIndex: trackIndex,
		UID:        "ATU_0000000" + string(rune('0'+n)),
		TrackRef:   "AT_0003100" + string(rune('0'+n)) + "_01",
		PackRef:    "AP_0003100" + string(rune('0'+n)),
	}
}

func TestChnaChunkRoundTrip(t *testing.T) {
	chunk := &ChnaChunk{}
	chunk.AddAudioID(testAudioID(1, 1))
	chunk.AddAudioID(testAudioID(1, 2))
	chunk.AddAudioID(testAudioID(2, 3))

	if chunk.Size() != 124 {
		t.Fatalf("expected 124 byte payload, got %d", chunk.Size())
	}

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	if uint64(buf.Len()) != chunk.Size() {
		t.Fatalf("encoded %d bytes but Size() is %d", buf.Len(), chunk.Size())
	}

	reread, err := parseChnaChunk(bytes.NewReader(buf.Bytes()), chunk.Size())
	if err != nil {
		t.Fatal(err)
	}

	// numTracks counts distinct track indices, not records
	if reread.NumTracks() != 2 {
		t.Fatalf("expected 2 tracks, got %d", reread.NumTracks())
	}

	if reread.NumUIDs() != 3 {
		t.Fatalf("expected 3 UIDs, got %d", reread.NumUIDs())
	}

	if reread.AudioIDs[0].TrackIndex != 1 {
		t.Fatalf("expected track index 1, got %d", reread.AudioIDs[0].TrackIndex)
	}

	if reread.AudioIDs[0].UID != "ATU_00000001" {
		t.Fatalf("unexpected uid %q", reread.AudioIDs[0].UID)
	}

	if reread.AudioIDs[2].TrackRef != "AT_00031003_01" {
		t.Fatalf("unexpected trackRef %q", reread.AudioIDs[2].TrackRef)
	}

	if reread.AudioIDs[2].PackRef != "AP_00031003" {
		t.Fatalf("unexpected packRef %q", reread.AudioIDs[2].PackRef)
	}
}

func TestParseChnaChunkRejections(t *testing.T) {
	_, err := parseChnaChunk(bytes.NewReader(make([]byte, 2)), 2)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for short chunk, got %v", err)
	}

	// header counts must match the records that follow
	chunk := &ChnaChunk{}
	chunk.AddAudioID(testAudioID(1, 1))

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	raw := buf.Bytes()
	raw[0] = 2 // numTracks = 2

	_, err = parseChnaChunk(bytes.NewReader(raw), uint64(len(raw)))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for wrong numTracks, got %v", err)
	}

	raw[0] = 1
	raw[2] = 2 // numUids = 2, but only one record follows

	_, err = parseChnaChunk(bytes.NewReader(raw), uint64(len(raw)))
	if err == nil {
		t.Fatal("expected error for wrong numUids")
	}
}

func TestEncodeAudioIDZeroTrackIndex(t *testing.T) {
	chunk := &ChnaChunk{}
	chunk.AddAudioID(AudioID{TrackIndex: 0, UID: "ATU_00000001", TrackRef: "AT_00031001_01", PackRef: "AP_00031001"})

	err := chunk.encode(&bytes.Buffer{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero trackIndex, got %v", err)
	}
}

func TestEncodeAudioIDOversizedReference(t *testing.T) {
	chunk := &ChnaChunk{}
	chunk.AddAudioID(AudioID{TrackIndex: 1, UID: "ATU_0000000000001", TrackRef: "AT_00031001_01", PackRef: "AP_00031001"})

	err := chunk.encode(&bytes.Buffer{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for oversized uid, got %v", err)
	}
}

func TestEncodeAudioIDShortReferencePadded(t *testing.T) {
	chunk := &ChnaChunk{}
	chunk.AddAudioID(AudioID{TrackIndex: 1, UID: "ATU_1", TrackRef: "AT_1", PackRef: "AP_1"})

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	if uint64(buf.Len()) != chunk.Size() {
		t.Fatalf("short references must be padded to the fixed field width, got %d bytes", buf.Len())
	}

	reread, err := parseChnaChunk(bytes.NewReader(buf.Bytes()), chunk.Size())
	if err != nil {
		t.Fatal(err)
	}

	if got := nullTermStr([]byte(reread.AudioIDs[0].UID)); got != "ATU_1" {
		t.Fatalf("unexpected padded uid %q", got)
	}
}
