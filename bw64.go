package bw64

import (
	"errors"

	"github.com/go-audio/riff"
)

var (
	// CIDRiff is the outer group ID of a legacy RIFF file.
	CIDRiff = riff.RiffID
	// CIDWave is the outer format type of a WAVE file.
	CIDWave = riff.WavFormatID
	// CIDFmt is the chunk ID of the format chunk.
	CIDFmt = riff.FmtID
	// CIDData is the chunk ID of the data chunk.
	CIDData = riff.DataFormatID
	// CIDBW64 is the outer group ID of a BW64 file.
	CIDBW64 = [4]byte{'B', 'W', '6', '4'}
	// CIDRF64 is the outer group ID of an RF64 file.
	CIDRF64 = [4]byte{'R', 'F', '6', '4'}
	// CIDJunk is the chunk ID of the ds64 placeholder chunk.
	CIDJunk = [4]byte{'J', 'U', 'N', 'K'}
	// CIDDs64 is the chunk ID of the 64-bit size table chunk.
	CIDDs64 = [4]byte{'d', 's', '6', '4'}
	// CIDChna is the chunk ID of the channel allocation chunk.
	CIDChna = [4]byte{'c', 'h', 'n', 'a'}
	// CIDAxml is the chunk ID of the ADM XML chunk.
	CIDAxml = [4]byte{'a', 'x', 'm', 'l'}
	// CIDBext is the chunk ID of the broadcast extension chunk.
	CIDBext = [4]byte{'b', 'e', 'x', 't'}
	// CIDCue is the chunk ID of the cue chunk.
	CIDCue = [4]byte{'c', 'u', 'e', 0x20}
	// CIDLabl is the sub-chunk ID of a marker label.
	CIDLabl = [4]byte{'l', 'a', 'b', 'l'}
	// CIDList is the chunk ID of a LIST chunk.
	CIDList = [4]byte{'L', 'I', 'S', 'T'}
	// CIDAdtl is the LIST type carrying marker labels.
	CIDAdtl = [4]byte{'a', 'd', 't', 'l'}
)

var (
	// ErrInvalidArgument is returned when caller-supplied parameters violate
	// format constraints.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFormat is returned when file contents violate the BW64/WAVE grammar.
	ErrFormat = errors.New("invalid bw64 format")
	// ErrMissingChunk is returned when a mandatory chunk is absent.
	ErrMissingChunk = errors.New("mandatory chunk missing")
	// ErrCapacityExceeded is returned when a patched chunk outgrows its
	// reserved placeholder.
	ErrCapacityExceeded = errors.New("reserved chunk capacity exceeded")
)

func fourCCStr(id [4]byte) string {
	return string(id[:])
}

func nullTermStr(b []byte) string {
	return string(b[:clen(b)])
}

func clen(num []byte) int {
	for i := range num {
		if num[i] == 0 {
			return i
		}
	}

	return len(num)
}
