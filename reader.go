package bw64

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-audio/audio"
)

var (
	errNotRiff          = errors.New("file is not a RIFF, BW64 or RF64 file")
	errNotWave          = errors.New("file is not a WAVE file")
	errChunkPastEOF     = errors.New("chunk ends after end of file")
	errReadPastEOF      = errors.New("file ended while reading frames")
	errRawBufferMisfit  = errors.New("raw buffer length is not a whole number of frames")
	errReaderDataAccess = errors.New("reader has no data chunk")
)

// Reader reads a BW64, RF64 or plain RIFF/WAVE file. The whole chunk
// directory is scanned on construction; sample frames are read on demand
// and never buffered beyond the codec staging area.
type Reader struct {
	r        io.ReadSeeker
	closer   io.Closer
	registry *ChunkRegistry

	fileFormat [4]byte
	fileSize   uint32

	chunks       []Chunk
	chunkHeaders []ChunkHeader

	fmtChunk     *FmtChunk
	dataChunk    *DataChunk
	dataStartPos uint64

	decodeSample func(io.Reader, []byte) (float32, error)
}

// ReadFile opens the BW64 file at path for reading. The returned Reader
// owns the file handle; Close releases it.
func ReadFile(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", path, err)
	}

	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	reader.closer = file

	return reader, nil
}

// NewReader parses the chunk directory of the passed stream and positions
// the frame cursor at the start of the data chunk.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	reader := &Reader{
		r:        r,
		registry: newDefaultChunkRegistry(),
	}

	err := reader.parse()
	if err != nil {
		return nil, err
	}

	_, err = reader.Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}

	return reader, nil
}

func (r *Reader) parse() error {
	err := r.readRiffHeader()
	if err != nil {
		return err
	}

	if r.fileFormat == CIDBW64 || r.fileFormat == CIDRF64 {
		err := r.parseDs64First()
		if err != nil {
			return err
		}
	}

	err = r.parseChunkHeaders()
	if err != nil {
		return err
	}

	err = r.materializeChunks()
	if err != nil {
		return err
	}

	r.fmtChunk, _ = r.chunkByID(CIDFmt).(*FmtChunk)
	if r.fmtChunk == nil {
		return fmt.Errorf("%w: fmt", ErrMissingChunk)
	}

	r.dataChunk, _ = r.chunkByID(CIDData).(*DataChunk)
	if r.dataChunk == nil {
		return fmt.Errorf("%w: data", ErrMissingChunk)
	}

	header, ok := r.headerByID(CIDData)
	if !ok {
		return fmt.Errorf("%w: data", ErrMissingChunk)
	}

	r.dataStartPos = header.Position + 8

	r.associateCueLabels()

	return nil
}

func (r *Reader) readRiffHeader() error {
	var formatType [4]byte

	_, err := io.ReadFull(r.r, r.fileFormat[:])
	if err != nil {
		return fmt.Errorf("failed to read group ID: %w", err)
	}

	err = binary.Read(r.r, binary.LittleEndian, &r.fileSize)
	if err != nil {
		return fmt.Errorf("failed to read group size: %w", err)
	}

	_, err = io.ReadFull(r.r, formatType[:])
	if err != nil {
		return fmt.Errorf("failed to read format type: %w", err)
	}

	if r.fileFormat != CIDRiff && r.fileFormat != CIDBW64 && r.fileFormat != CIDRF64 {
		return fmt.Errorf("%w: %w", ErrFormat, errNotRiff)
	}

	if formatType != CIDWave {
		return fmt.Errorf("%w: %w", ErrFormat, errNotWave)
	}

	return nil
}

// parseDs64First parses the mandatory ds64 chunk that must directly follow
// the outer header of a BW64 or RF64 file, so all following chunk headers
// can resolve their 64-bit sizes.
func (r *Reader) parseDs64First() error {
	header, err := r.parseHeader()
	if err != nil {
		return err
	}

	if header.ID != CIDDs64 {
		return fmt.Errorf("%w: ds64 (mandatory for BW64 and RF64 files)", ErrMissingChunk)
	}

	chunk, err := r.registry.Parse(header, r.r)
	if err != nil {
		return err
	}

	r.chunks = append(r.chunks, chunk)
	r.chunkHeaders = append(r.chunkHeaders, header)

	if header.Size%2 == 1 {
		_, err := r.r.Seek(1, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("failed to seek past ds64 padding: %w", err)
		}
	}

	return nil
}

func (r *Reader) parseHeader() (ChunkHeader, error) {
	position, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return ChunkHeader{}, fmt.Errorf("failed to tell chunk position: %w", err)
	}

	var (
		id   [4]byte
		size uint32
	)

	_, err = io.ReadFull(r.r, id[:])
	if err != nil {
		return ChunkHeader{}, fmt.Errorf("failed to read chunk ID: %w", err)
	}

	err = binary.Read(r.r, binary.LittleEndian, &size)
	if err != nil {
		return ChunkHeader{}, fmt.Errorf("failed to read chunk size: %w", err)
	}

	return ChunkHeader{
		ID:       id,
		Size:     r.chunkSize64(id, size),
		Position: uint64(position),
	}, nil
}

// chunkSize64 resolves the true chunk size through the ds64 table when one
// is present; the stored uint32 is authoritative otherwise.
func (r *Reader) chunkSize64(id [4]byte, size uint32) uint64 {
	ds64, _ := r.chunkByID(CIDDs64).(*DataSize64Chunk)
	if ds64 == nil {
		return uint64(size)
	}

	if id == CIDData {
		return ds64.DataSize
	}

	if tableSize, ok := ds64.ChunkSize(id); ok {
		return tableSize
	}

	return uint64(size)
}

func (r *Reader) parseChunkHeaders() error {
	start, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to tell directory position: %w", err)
	}

	end, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	position := start

	for position+8 <= end {
		_, err := r.r.Seek(position, io.SeekStart)
		if err != nil {
			return fmt.Errorf("failed to seek to chunk header: %w", err)
		}

		header, err := r.parseHeader()
		if err != nil {
			return err
		}

		chunkEnd := int64(header.Position) + 8 + int64(header.Size)
		if chunkEnd > end {
			return fmt.Errorf("%w: %w", ErrFormat, errChunkPastEOF)
		}

		r.chunkHeaders = append(r.chunkHeaders, header)

		position = chunkEnd
		if chunkEnd < end && header.Size%2 == 1 {
			position++
		}
	}

	return nil
}

func (r *Reader) materializeChunks() error {
	for _, header := range r.chunkHeaders {
		if header.ID == CIDDs64 {
			continue
		}

		_, err := r.r.Seek(int64(header.Position)+8, io.SeekStart)
		if err != nil {
			return fmt.Errorf("failed to seek to %q chunk: %w", fourCCStr(header.ID), err)
		}

		chunk, err := r.registry.Parse(header, r.r)
		if err != nil {
			return err
		}

		r.chunks = append(r.chunks, chunk)
	}

	return nil
}

// associateCueLabels joins 'labl' sub-chunks from all LIST/adtl chunks onto
// the matching cue points by ID. Cue points without a label keep an empty
// string.
func (r *Reader) associateCueLabels() {
	cue, _ := r.chunkByID(CIDCue).(*CueChunk)
	if cue == nil {
		return
	}

	labels := map[uint32]string{}

	for _, list := range r.ListChunks() {
		if list.ListType != CIDAdtl {
			continue
		}

		for _, label := range list.Labels() {
			labels[label.CuePointID] = label.Label
		}
	}

	for i := range cue.cuePoints {
		if label, ok := labels[cue.cuePoints[i].ID]; ok {
			cue.cuePoints[i].Label = label
		}
	}
}

func (r *Reader) chunkByID(id [4]byte) Chunk {
	for _, chunk := range r.chunks {
		if chunk.ID() == id {
			return chunk
		}
	}

	return nil
}

func (r *Reader) headerByID(id [4]byte) (ChunkHeader, bool) {
	for _, header := range r.chunkHeaders {
		if header.ID == id {
			return header, true
		}
	}

	return ChunkHeader{}, false
}

// FileFormat returns the outer group ID (RIFF, BW64 or RF64).
func (r *Reader) FileFormat() [4]byte { return r.fileFormat }

// FileSize returns the stored 32-bit outer group size. Long-form files pin
// it at 0xFFFFFFFF; the true size lives in the ds64 chunk.
func (r *Reader) FileSize() uint32 { return r.fileSize }

// FormatTag returns the stored format tag of the fmt chunk.
func (r *Reader) FormatTag() uint16 { return r.fmtChunk.FormatTag }

// NumChannels returns the channel count.
func (r *Reader) NumChannels() int { return int(r.fmtChunk.NumChannels) }

// SampleRate returns the sample rate in Hz.
func (r *Reader) SampleRate() int { return int(r.fmtChunk.SampleRate) }

// BitDepth returns the stored bits per sample.
func (r *Reader) BitDepth() int { return int(r.fmtChunk.BitsPerSample) }

// BlockAlign returns the byte size of one frame.
func (r *Reader) BlockAlign() int { return int(r.fmtChunk.BlockAlign) }

// NumberOfFrames returns the frame count of the data chunk.
func (r *Reader) NumberOfFrames() uint64 {
	return r.dataChunk.Size() / uint64(r.fmtChunk.BlockAlign)
}

// Format returns the audio format of the file content.
func (r *Reader) Format() *audio.Format {
	return &audio.Format{
		NumChannels: r.NumChannels(),
		SampleRate:  r.SampleRate(),
	}
}

// Duration returns the play time of the data chunk.
func (r *Reader) Duration() time.Duration {
	return time.Duration(float64(r.NumberOfFrames()) / float64(r.SampleRate()) * float64(time.Second))
}

// ChunkHeaders returns the chunk directory in on-disk order.
func (r *Reader) ChunkHeaders() []ChunkHeader {
	return append([]ChunkHeader(nil), r.chunkHeaders...)
}

// HasChunk reports whether a chunk with the given ID is present.
func (r *Reader) HasChunk(id [4]byte) bool {
	_, ok := r.headerByID(id)
	return ok
}

// Ds64Chunk returns the ds64 chunk, or nil if absent.
func (r *Reader) Ds64Chunk() *DataSize64Chunk {
	chunk, _ := r.chunkByID(CIDDs64).(*DataSize64Chunk)
	return chunk
}

// FmtChunk returns a copy of the parsed fmt chunk.
func (r *Reader) FmtChunk() *FmtChunk {
	return r.fmtChunk.Clone()
}

// DataSize returns the byte size of the data chunk.
func (r *Reader) DataSize() uint64 { return r.dataChunk.Size() }

// ChnaChunk returns the chna chunk, or nil if absent.
func (r *Reader) ChnaChunk() *ChnaChunk {
	chunk, _ := r.chunkByID(CIDChna).(*ChnaChunk)
	return chunk
}

// AxmlChunk returns the axml chunk, or nil if absent.
func (r *Reader) AxmlChunk() *AxmlChunk {
	chunk, _ := r.chunkByID(CIDAxml).(*AxmlChunk)
	return chunk
}

// BextChunk returns the bext chunk, or nil if absent.
func (r *Reader) BextChunk() *BextChunk {
	chunk, _ := r.chunkByID(CIDBext).(*BextChunk)
	return chunk
}

// CueChunk returns the cue chunk, or nil if absent.
func (r *Reader) CueChunk() *CueChunk {
	chunk, _ := r.chunkByID(CIDCue).(*CueChunk)
	return chunk
}

// ListChunks returns all LIST chunks in the file.
func (r *Reader) ListChunks() []*ListChunk {
	var out []*ListChunk

	for _, chunk := range r.chunks {
		if list, ok := chunk.(*ListChunk); ok {
			out = append(out, list)
		}
	}

	return out
}

// Markers returns all cue points with their labels joined, sorted by
// position.
func (r *Reader) Markers() []CuePoint {
	cue := r.CueChunk()
	if cue == nil {
		return nil
	}

	markers := cue.CuePoints()
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Position < markers[j].Position
	})

	return markers
}

// FindMarkerByID returns the cue point with the given ID.
func (r *Reader) FindMarkerByID(id uint32) (CuePoint, bool) {
	cue := r.CueChunk()
	if cue == nil {
		return CuePoint{}, false
	}

	for _, marker := range cue.CuePoints() {
		if marker.ID == id {
			return marker, true
		}
	}

	return CuePoint{}, false
}

// Tell returns the current frame position inside the data chunk.
func (r *Reader) Tell() (uint64, error) {
	position, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to tell frame position: %w", err)
	}

	return (uint64(position) - r.dataStartPos) / uint64(r.fmtChunk.BlockAlign), nil
}

// EOF reports whether the frame cursor reached the end of the data chunk.
func (r *Reader) EOF() bool {
	frame, err := r.Tell()
	if err != nil {
		return true
	}

	return frame == r.NumberOfFrames()
}

// Seek moves the frame cursor, interpreting offset in frames relative to
// whence (io.SeekStart, io.SeekCurrent or io.SeekEnd). The target is
// clamped to [0, NumberOfFrames]. It returns the new frame position.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.dataChunk == nil {
		return 0, errReaderDataAccess
	}

	numberOfFrames := int64(r.NumberOfFrames())

	var startFrame int64

	switch whence {
	case io.SeekCurrent:
		frame, err := r.Tell()
		if err != nil {
			return 0, err
		}

		startFrame = int64(frame)
	case io.SeekEnd:
		startFrame = numberOfFrames
	default:
		startFrame = 0
	}

	frame := startFrame + offset
	if frame < 0 {
		frame = 0
	} else if frame > numberOfFrames {
		frame = numberOfFrames
	}

	framePos := int64(r.dataStartPos) + frame*int64(r.fmtChunk.BlockAlign)

	_, err := r.r.Seek(framePos, io.SeekStart)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to frame %d: %w", frame, err)
	}

	return frame, nil
}

// Read decodes frames from the data chunk into the passed buffer and
// advances the frame cursor. The buffer length determines the requested
// frame count; fewer frames are returned at the end of the data chunk.
func (r *Reader) Read(buf *audio.Float32Buffer) (int, error) {
	if buf == nil || len(buf.Data) == 0 {
		return 0, nil
	}

	decode, err := r.sampleDecoder()
	if err != nil {
		return 0, err
	}

	frames := uint64(len(buf.Data) / r.NumChannels())

	raw, frames, err := r.readFrameBytes(frames)
	if err != nil {
		return 0, err
	}

	buf.Format = r.Format()
	buf.SourceBitDepth = r.BitDepth()

	rawReader := bytes.NewReader(raw)
	scratch := make([]byte, bytesPerSample(r.BitDepth()))

	samples := int(frames) * r.NumChannels()
	for i := 0; i < samples; i++ {
		buf.Data[i], err = decode(rawReader, scratch)
		if err != nil {
			return 0, fmt.Errorf("failed to decode sample: %w", err)
		}
	}

	return int(frames), nil
}

// ReadRaw copies undecoded frame bytes into p, which must hold a whole
// number of frames. It returns the number of frames read.
func (r *Reader) ReadRaw(p []byte) (int, error) {
	blockAlign := r.BlockAlign()
	if len(p)%blockAlign != 0 {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, errRawBufferMisfit)
	}

	raw, frames, err := r.readFrameBytes(uint64(len(p) / blockAlign))
	if err != nil {
		return 0, err
	}

	copy(p, raw)

	return int(frames), nil
}

// readFrameBytes reads up to frames whole frames from the current cursor,
// clamped to the remaining frame count.
func (r *Reader) readFrameBytes(frames uint64) ([]byte, uint64, error) {
	current, err := r.Tell()
	if err != nil {
		return nil, 0, err
	}

	if remaining := r.NumberOfFrames() - current; frames > remaining {
		frames = remaining
	}

	if frames == 0 {
		return nil, 0, nil
	}

	raw := make([]byte, frames*uint64(r.fmtChunk.BlockAlign))

	_, err = io.ReadFull(r.r, raw)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, fmt.Errorf("%w: %w", errReadPastEOF, err)
		}

		return nil, 0, fmt.Errorf("failed to read frames: %w", err)
	}

	return raw, frames, nil
}

func (r *Reader) sampleDecoder() (func(io.Reader, []byte) (float32, error), error) {
	if r.decodeSample != nil {
		return r.decodeSample, nil
	}

	decode, err := sampleDecodeFloat32Func(r.BitDepth(), r.fmtChunk.EffectiveFormatTag())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	r.decodeSample = decode

	return decode, nil
}

// Close releases the underlying file handle if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}

	closer := r.closer
	r.closer = nil

	err := closer.Close()
	if err != nil {
		return fmt.Errorf("file error detected when closing: %w", err)
	}

	return nil
}
