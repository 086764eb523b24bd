package bw64

import (
	"bytes"
	"errors"
	"testing"
)

func TestDataSize64ChunkRoundTrip(t *testing.T) {
	chunk := NewDataSize64Chunk(987654321, 123456789)
	chunk.SetChunkSize(CIDAxml, 654321)

	if chunk.Size() != 40 {
		t.Fatalf("expected 40 byte payload, got %d", chunk.Size())
	}

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	if uint64(buf.Len()) != chunk.Size() {
		t.Fatalf("encoded %d bytes but Size() is %d", buf.Len(), chunk.Size())
	}

	reread, err := parseDataSize64Chunk(bytes.NewReader(buf.Bytes()), chunk.Size())
	if err != nil {
		t.Fatal(err)
	}

	if reread.BW64Size != 987654321 {
		t.Fatalf("expected bw64Size 987654321, got %d", reread.BW64Size)
	}

	if reread.DataSize != 123456789 {
		t.Fatalf("expected dataSize 123456789, got %d", reread.DataSize)
	}

	if reread.TableLength() != 1 {
		t.Fatalf("expected one table entry, got %d", reread.TableLength())
	}

	size, ok := reread.ChunkSize(CIDAxml)
	if !ok || size != 654321 {
		t.Fatalf("expected axml size 654321, got %d (%v)", size, ok)
	}

	if _, ok := reread.ChunkSize(CIDChna); ok {
		t.Fatal("expected no chna table entry")
	}
}

func TestDataSize64ChunkLargeSizes(t *testing.T) {
	chunk := NewDataSize64Chunk(709493966490, 578957026724)

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	reread, err := parseDataSize64Chunk(bytes.NewReader(buf.Bytes()), chunk.Size())
	if err != nil {
		t.Fatal(err)
	}

	if reread.BW64Size != 709493966490 || reread.DataSize != 578957026724 {
		t.Fatalf("unexpected sizes: %d, %d", reread.BW64Size, reread.DataSize)
	}
}

func TestParseDataSize64ChunkJunkPadding(t *testing.T) {
	chunk := NewDataSize64Chunk(1000, 500)

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	// trailing junk up to the declared chunk size must be tolerated
	buf.Write(make([]byte, 12))

	reread, err := parseDataSize64Chunk(bytes.NewReader(buf.Bytes()), uint64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}

	if reread.BW64Size != 1000 || reread.DataSize != 500 {
		t.Fatalf("unexpected sizes: %d, %d", reread.BW64Size, reread.DataSize)
	}
}

func TestParseDataSize64ChunkRejections(t *testing.T) {
	_, err := parseDataSize64Chunk(bytes.NewReader(make([]byte, 8)), 8)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for short chunk, got %v", err)
	}

	// declared table does not fit the chunk size
	chunk := NewDataSize64Chunk(1000, 500)
	chunk.SetChunkSize(CIDAxml, 1)

	var buf bytes.Buffer
	if err := chunk.encode(&buf); err != nil {
		t.Fatal(err)
	}

	_, err = parseDataSize64Chunk(bytes.NewReader(buf.Bytes()), 28)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for truncated table, got %v", err)
	}
}

func TestDataSize64ChunkSetChunkSizeReplaces(t *testing.T) {
	chunk := NewDataSize64Chunk(0, 0)
	chunk.SetChunkSize(CIDAxml, 1)
	chunk.SetChunkSize(CIDAxml, 2)

	if chunk.TableLength() != 1 {
		t.Fatalf("expected one table entry, got %d", chunk.TableLength())
	}

	size, _ := chunk.ChunkSize(CIDAxml)
	if size != 2 {
		t.Fatalf("expected updated size 2, got %d", size)
	}
}
