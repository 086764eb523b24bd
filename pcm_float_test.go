package bw64

import (
	"bytes"
	"math"
	"testing"
)

func TestFloat32ToPCMUint8(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1.0, 0},
		{0.0, 128},
		{1.0, 255},
		{-2.0, 0},
		{2.0, 255},
	}

	for _, tc := range tests {
		got := float32ToPCMUint8(tc.in)
		if got != tc.want {
			t.Fatalf("float32ToPCMUint8(%f) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFloat32ToPCMInt32Saturates(t *testing.T) {
	tests := []struct {
		in       float32
		bitDepth int
		want     int32
	}{
		{1.0, 16, maxPCMInt16},
		{-1.0, 16, -32768},
		{2.0, 16, maxPCMInt16},
		{-2.0, 16, -32768},
		{1.0, 24, maxPCMInt24},
		{-1.0, 24, -8388608},
		{1.0, 32, maxPCMInt32},
		{-1.0, 32, -2147483648},
		{0.0, 16, 0},
	}

	for _, tc := range tests {
		got := float32ToPCMInt32(tc.in, tc.bitDepth)
		if got != tc.want {
			t.Fatalf("float32ToPCMInt32(%f, %d) = %d, want %d", tc.in, tc.bitDepth, got, tc.want)
		}
	}
}

func TestNormalizePCMInt(t *testing.T) {
	if got := normalizePCMInt(-32768, 16); got != -1.0 {
		t.Fatalf("expected -1.0, got %f", got)
	}

	if got := normalizePCMInt(32767, 16); got < 0.999 || got > 1.0 {
		t.Fatalf("expected value just below 1.0, got %f", got)
	}

	if got := normalizePCMInt(0, 16); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}

	if got := normalizePCMInt(128, 8); math.Abs(float64(got)) > 0.005 {
		t.Fatalf("expected 8-bit midpoint near 0, got %f", got)
	}
}

func TestSampleCodecRoundTrip(t *testing.T) {
	values := []float32{0, 0.25, -0.25, 0.5, -0.5, 0.999, -0.999}

	for _, bitDepth := range []int{8, 16, 24, 32} {
		encode, err := sampleEncodeFunc(bitDepth, FormatPCM)
		if err != nil {
			t.Fatal(err)
		}

		decode, err := sampleDecodeFloat32Func(bitDepth, FormatPCM)
		if err != nil {
			t.Fatal(err)
		}

		// one quantization step, bounded below by float32 precision
		tolerance := math.Max(2.0/math.Pow(2, float64(bitDepth)), math.Pow(2, -23))
		scratch := make([]byte, bytesPerSample(bitDepth))

		for _, value := range values {
			var buf bytes.Buffer

			if err := encode(&buf, value); err != nil {
				t.Fatal(err)
			}

			got, err := decode(bytes.NewReader(buf.Bytes()), scratch)
			if err != nil {
				t.Fatal(err)
			}

			if math.Abs(float64(got-value)) > tolerance {
				t.Fatalf("%d-bit round-trip of %f yielded %f (tolerance %g)", bitDepth, value, got, tolerance)
			}
		}
	}
}

func TestSampleCodecFloatPreservesOutOfRange(t *testing.T) {
	values := []float32{2.5, -3.75, 1.0001}

	for _, bitDepth := range []int{32, 64} {
		encode, err := sampleEncodeFunc(bitDepth, FormatIEEEFloat)
		if err != nil {
			t.Fatal(err)
		}

		decode, err := sampleDecodeFloat32Func(bitDepth, FormatIEEEFloat)
		if err != nil {
			t.Fatal(err)
		}

		scratch := make([]byte, bytesPerSample(bitDepth))

		for _, value := range values {
			var buf bytes.Buffer

			if err := encode(&buf, value); err != nil {
				t.Fatal(err)
			}

			got, err := decode(bytes.NewReader(buf.Bytes()), scratch)
			if err != nil {
				t.Fatal(err)
			}

			if got != value {
				t.Fatalf("%d-bit float round-trip of %f yielded %f", bitDepth, value, got)
			}
		}
	}
}

func TestSampleCodecUnsupported(t *testing.T) {
	if _, err := sampleEncodeFunc(12, FormatPCM); err == nil {
		t.Fatal("expected error for 12-bit PCM")
	}

	if _, err := sampleEncodeFunc(16, FormatIEEEFloat); err == nil {
		t.Fatal("expected error for 16-bit float")
	}

	if _, err := sampleDecodeFloat32Func(16, FormatExtensible); err == nil {
		t.Fatal("expected error for unresolved extensible tag")
	}
}
