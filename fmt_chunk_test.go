package bw64

import (
	"bytes"
	"errors"
	"testing"
)

func validFmtBytes() []byte {
	return []byte{
		0x01, 0x00, 0x01, 0x00, // formatTag = 1; channelCount = 1
		0x80, 0xbb, 0x00, 0x00, // sampleRate = 48000
		0x00, 0x77, 0x01, 0x00, // bytesPerSecond = 96000
		0x02, 0x00, 0x10, 0x00, // blockAlignment = 2; bitsPerSample = 16
	}
}

func TestParseFmtChunk(t *testing.T) {
	chunk, err := parseFmtChunk(bytes.NewReader(validFmtBytes()), 16)
	if err != nil {
		t.Fatal(err)
	}

	if chunk.FormatTag != FormatPCM {
		t.Fatalf("expected PCM format tag, got %d", chunk.FormatTag)
	}

	if chunk.NumChannels != 1 {
		t.Fatalf("expected 1 channel, got %d", chunk.NumChannels)
	}

	if chunk.SampleRate != 48000 {
		t.Fatalf("expected 48000 Hz, got %d", chunk.SampleRate)
	}

	if chunk.AvgBytesPerSec != 96000 {
		t.Fatalf("expected 96000 bytes/sec, got %d", chunk.AvgBytesPerSec)
	}

	if chunk.BlockAlign != 2 {
		t.Fatalf("expected block align 2, got %d", chunk.BlockAlign)
	}

	if chunk.BitsPerSample != 16 {
		t.Fatalf("expected 16 bits, got %d", chunk.BitsPerSample)
	}

	if chunk.Extensible != nil {
		t.Fatal("expected no extensible data")
	}
}

func TestParseFmtChunkRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
		size   uint64
	}{
		{
			name:   "wrong chunk size",
			mutate: func(b []byte) []byte { return append(b, 0, 0, 0, 0) },
			size:   20,
		},
		{
			name:   "illegal format tag",
			mutate: func(b []byte) []byte { b[0] = 0x02; return b },
			size:   16,
		},
		{
			name:   "zero channel count",
			mutate: func(b []byte) []byte { b[2] = 0x00; return b },
			size:   16,
		},
		{
			name: "zero sample rate",
			mutate: func(b []byte) []byte {
				copy(b[4:8], []byte{0, 0, 0, 0})
				return b
			},
			size: 16,
		},
		{
			name:   "wrong bytes per second",
			mutate: func(b []byte) []byte { b[8] = 0x01; return b },
			size:   16,
		},
		{
			name:   "wrong block alignment",
			mutate: func(b []byte) []byte { b[12] = 0x00; return b },
			size:   16,
		},
		{
			name:   "too small",
			mutate: func(b []byte) []byte { return b[:8] },
			size:   8,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := tc.mutate(validFmtBytes())

			_, err := parseFmtChunk(bytes.NewReader(raw), tc.size)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("expected ErrFormat, got %v", err)
			}
		})
	}
}

func TestParseFmtChunkExtensible(t *testing.T) {
	ext := &FmtExtensible{
		ValidBitsPerSample: 32,
		ChannelMask:        0x3,
		SubFormat:          makeSubFormatGUID(FormatIEEEFloat),
	}

	chunk, err := NewFmtChunk(2, 48000, 32, ext, FormatExtensible)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	if got := uint64(buf.Len()); got != chunk.Size() {
		t.Fatalf("encoded %d bytes but Size() is %d", got, chunk.Size())
	}

	reread, err := parseFmtChunk(bytes.NewReader(buf.Bytes()), chunk.Size())
	if err != nil {
		t.Fatal(err)
	}

	if reread.FormatTag != FormatExtensible {
		t.Fatalf("expected extensible format tag, got %d", reread.FormatTag)
	}

	if reread.Extensible == nil {
		t.Fatal("expected extensible data")
	}

	if reread.Extensible.ChannelMask != 0x3 {
		t.Fatalf("expected channel mask 0x3, got %#x", reread.Extensible.ChannelMask)
	}

	if reread.EffectiveFormatTag() != FormatIEEEFloat {
		t.Fatalf("expected effective IEEE float tag, got %d", reread.EffectiveFormatTag())
	}

	if !reread.IsFloat() {
		t.Fatal("expected float sample coding")
	}
}

func TestParseFmtChunkExtensibleRejections(t *testing.T) {
	// extensible tag without extra data
	raw := validFmtBytes()
	raw[0], raw[1] = 0xFE, 0xFF
	raw = append(raw, 0, 0) // cbSize = 0

	_, err := parseFmtChunk(bytes.NewReader(raw), 18)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for extensible without extra data, got %v", err)
	}

	// PCM tag with extra data
	ext, err := NewFmtChunk(2, 48000, 16, &FmtExtensible{SubFormat: makeSubFormatGUID(FormatPCM)}, FormatExtensible)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := ext.encode(&buf); err != nil {
		t.Fatal(err)
	}

	pcmWithExtra := buf.Bytes()
	pcmWithExtra[0], pcmWithExtra[1] = 0x01, 0x00

	_, err = parseFmtChunk(bytes.NewReader(pcmWithExtra), uint64(len(pcmWithExtra)))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for PCM with extra data, got %v", err)
	}

	// unsupported subformat GUID
	buf.Reset()
	if err := ext.encode(&buf); err != nil {
		t.Fatal(err)
	}

	badGUID := buf.Bytes()
	badGUID[24] = 0x02 // GUID Data1

	_, err = parseFmtChunk(bytes.NewReader(badGUID), uint64(len(badGUID)))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for unsupported subformat, got %v", err)
	}
}

func TestFmtChunkRoundTrip(t *testing.T) {
	chunk, err := NewFmtChunk(2, 48000, 24, nil, FormatPCM)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	reread, err := parseFmtChunk(bytes.NewReader(buf.Bytes()), 16)
	if err != nil {
		t.Fatal(err)
	}

	if reread.NumChannels != 2 || reread.SampleRate != 48000 || reread.BitsPerSample != 24 {
		t.Fatalf("unexpected round-trip result: %+v", reread)
	}
}

func TestNewFmtChunkOverflow(t *testing.T) {
	_, err := NewFmtChunk(0xffff, 48000, 24, nil, FormatPCM)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blockAlignment overflow, got %v", err)
	}

	_, err = NewFmtChunk(0x1000, 0xffffffff, 16, nil, FormatPCM)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bytesPerSecond overflow, got %v", err)
	}

	_, err = NewFmtChunk(0, 48000, 16, nil, FormatPCM)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero channels, got %v", err)
	}
}

func TestCorrectChannelMask(t *testing.T) {
	tests := []struct {
		mask     uint32
		channels int
		want     uint32
	}{
		{0x3, 2, 0x3},
		{0xFF, 2, 0x3},
		{0x0, 2, 0x0},
		{0x63F, 6, 0x3F},
	}

	for _, tc := range tests {
		got := correctChannelMask(tc.mask, tc.channels)
		if got != tc.want {
			t.Fatalf("correctChannelMask(%#x, %d) = %#x, want %#x", tc.mask, tc.channels, got, tc.want)
		}
	}
}
