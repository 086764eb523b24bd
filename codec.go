package bw64

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
)

var (
	errUnhandledByteDepth     = errors.New("unhandled byte depth")
	errUnhandledFloatBitDepth = errors.New("unhandled float bit depth")
	errUnsupportedFormatTag   = errors.New("unsupported format tag")
)

// sampleDecodeFunc returns a function that can be used to convert
// a byte range into an int value based on the amount of bits used per sample.
// Note that 8bit samples are unsigned, all other values are signed.
func sampleDecodeFunc(bitsPerSample int) (func(io.Reader, []byte) (int, error), error) {
	// all PCM data is stored little-endian
	switch bitsPerSample {
	case 8:
		// 8bit values are unsigned
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := io.ReadFull(r, buf[:1])
			return int(buf[0]), err
		}, nil
	case 16:
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := io.ReadFull(r, buf[:2])
			return int(int16(binary.LittleEndian.Uint16(buf[:2]))), err
		}, nil
	case 24:
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := io.ReadFull(r, buf[:3])
			if err != nil {
				return 0, err
			}

			return int(audio.Int24LETo32(buf[:3])), nil
		}, nil
	case 32:
		return func(r io.Reader, buf []byte) (int, error) {
			_, err := io.ReadFull(r, buf[:4])
			return int(int32(binary.LittleEndian.Uint32(buf[:4]))), err
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", errUnhandledByteDepth, bitsPerSample)
	}
}

// sampleDecodeFloat32Func returns a function that converts one on-disk
// sample into a host float32. IEEE float samples are passed through without
// clamping so values outside [-1, 1] survive a round-trip.
func sampleDecodeFloat32Func(bitsPerSample int, formatTag uint16) (func(io.Reader, []byte) (float32, error), error) {
	if formatTag == FormatIEEEFloat {
		switch bitsPerSample {
		case 32:
			return func(r io.Reader, buf []byte) (float32, error) {
				_, err := io.ReadFull(r, buf[:4])
				if err != nil {
					return 0, err
				}

				return math.Float32frombits(binary.LittleEndian.Uint32(buf[:4])), nil
			}, nil
		case 64:
			return func(r io.Reader, buf []byte) (float32, error) {
				_, err := io.ReadFull(r, buf[:8])
				if err != nil {
					return 0, err
				}

				return float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[:8]))), nil
			}, nil
		default:
			return nil, fmt.Errorf("%w: %d", errUnhandledFloatBitDepth, bitsPerSample)
		}
	}

	if formatTag != FormatPCM {
		return nil, fmt.Errorf("%w: %d", errUnsupportedFormatTag, formatTag)
	}

	decodeInt, err := sampleDecodeFunc(bitsPerSample)
	if err != nil {
		return nil, err
	}

	return func(r io.Reader, buf []byte) (float32, error) {
		value, err := decodeInt(r, buf)
		if err != nil {
			return 0, err
		}

		return normalizePCMInt(value, bitsPerSample), nil
	}, nil
}

// sampleEncodeFunc returns a function that writes one host float32 sample
// in the on-disk representation. PCM encoders saturate values outside
// [-1, 1]; IEEE float encoders write the value unchanged.
func sampleEncodeFunc(bitsPerSample int, formatTag uint16) (func(io.Writer, float32) error, error) {
	if formatTag == FormatIEEEFloat {
		switch bitsPerSample {
		case 32:
			return func(w io.Writer, value float32) error {
				return binary.Write(w, binary.LittleEndian, value)
			}, nil
		case 64:
			return func(w io.Writer, value float32) error {
				return binary.Write(w, binary.LittleEndian, float64(value))
			}, nil
		default:
			return nil, fmt.Errorf("%w: %d", errUnhandledFloatBitDepth, bitsPerSample)
		}
	}

	if formatTag != FormatPCM {
		return nil, fmt.Errorf("%w: %d", errUnsupportedFormatTag, formatTag)
	}

	switch bitsPerSample {
	case 8:
		return func(w io.Writer, value float32) error {
			return binary.Write(w, binary.LittleEndian, float32ToPCMUint8(value))
		}, nil
	case 16:
		return func(w io.Writer, value float32) error {
			return binary.Write(w, binary.LittleEndian, int16(float32ToPCMInt32(value, 16)))
		}, nil
	case 24:
		return func(w io.Writer, value float32) error {
			_, err := w.Write(audio.Int32toInt24LEBytes(float32ToPCMInt32(value, 24)))
			return err
		}, nil
	case 32:
		return func(w io.Writer, value float32) error {
			return binary.Write(w, binary.LittleEndian, float32ToPCMInt32(value, 32))
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", errUnhandledByteDepth, bitsPerSample)
	}
}
