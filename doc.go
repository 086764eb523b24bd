// Package bw64 reads and writes BW64/RF64 (ITU-R BS.2088) audio files, the
// broadcast extension of the RIFF/WAVE container that supports payloads
// larger than 4 GiB.
//
// The package supports PCM integer (8/16/24/32-bit) and IEEE float
// (32/64-bit) sample coding, resolves 64-bit chunk sizes through the ds64
// chunk, and parses and encodes the broadcast metadata chunks: chna, axml,
// bext, cue and LIST/adtl marker labels.
//
// Reading is done through Reader, which scans the chunk directory on open
// and exposes frame-level random access:
//
//   - ReadFile(path) / NewReader(io.ReadSeeker)
//   - Read(*audio.Float32Buffer), ReadRaw([]byte), Seek
//   - Markers(), ChnaChunk(), AxmlChunk(), ...
//
// Writing is done through Writer, which reserves placeholder regions on
// open, streams sample frames, and finalizes headers on Close, promoting
// the file to BW64 (or RF64) when it grows past 4 GiB.
package bw64
