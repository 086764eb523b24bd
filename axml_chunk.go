package bw64

import (
	"fmt"
	"io"
)

// AxmlChunk carries the Audio Definition Model XML document. The payload is
// treated as opaque bytes; null bytes are preserved exactly.
type AxmlChunk struct {
	Data []byte
}

// NewAxmlChunk builds an axml chunk from an XML document.
func NewAxmlChunk(data []byte) *AxmlChunk {
	return &AxmlChunk{Data: data}
}

// ID returns 'axml'.
func (c *AxmlChunk) ID() [4]byte { return CIDAxml }

// Size returns the payload size in bytes.
func (c *AxmlChunk) Size() uint64 { return uint64(len(c.Data)) }

func (c *AxmlChunk) encode(w io.Writer) error {
	_, err := w.Write(c.Data)
	if err != nil {
		return fmt.Errorf("failed to write axml chunk payload: %w", err)
	}

	return nil
}

func parseAxmlChunk(r io.Reader, size uint64) (*AxmlChunk, error) {
	data := make([]byte, size)

	_, err := io.ReadFull(r, data)
	if err != nil {
		return nil, fmt.Errorf("failed to read axml chunk: %w", err)
	}

	return &AxmlChunk{Data: data}, nil
}
