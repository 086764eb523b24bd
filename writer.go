package bw64

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
)

const ds64PlaceholderSize = 40 // 28 byte ds64 header + one 12 byte table slot

var (
	errWriterClosed      = errors.New("writer is closed")
	errChannelMismatch   = errors.New("buffer channel count does not match writer")
	errTooManyUIDs       = errors.New("number of trackUids is > 1024")
	errNoSuchChunkHeader = errors.New("no chunk header with requested id")
)

// WriterConfig describes the layout of a new BW64 file.
type WriterConfig struct {
	// NumChans, SampleRate and BitDepth describe the sample layout.
	NumChans   int
	SampleRate int
	BitDepth   int
	// UseExtensible forces a WAVE_FORMAT_EXTENSIBLE fmt chunk. A non-zero
	// ChannelMask implies it.
	UseExtensible bool
	// UseFloat selects IEEE float sample coding instead of PCM.
	UseFloat bool
	// ChannelMask carries the speaker positions for extensible layouts. Only
	// the lowest NumChans set bits are kept; further set bits are dropped.
	ChannelMask uint32
	// MaxMarkers reserves a cue chunk with room for that many cue points.
	MaxMarkers int
	// UseRF64 selects the 'RF64' group ID over 'BW64' should the file grow
	// past 4 GiB.
	UseRF64 bool
	// PreDataChunks are emitted between the fmt chunk and the data chunk,
	// in order.
	PreDataChunks []Chunk
}

// Writer writes a BW64 file. The chunk layout is reserved on construction,
// sample frames are streamed through Write/WriteRaw, and Close patches the
// reserved headers, promoting the file to BW64/RF64 when any size outgrows
// 32 bits.
type Writer struct {
	w      io.WriteSeeker
	closer io.Closer

	fmtChunk  *FmtChunk
	dataChunk *DataChunk

	chunks         []Chunk
	chunkHeaders   []ChunkHeader
	postDataChunks []Chunk
	dataHeaderIdx  int

	encodeSample func(io.Writer, float32) error
	buf          *bytes.Buffer

	useRF64 bool
	closed  bool
}

// CreateFile opens a new BW64 file for writing, truncating any existing
// file at path. The returned Writer owns the file handle.
func CreateFile(path string, cfg WriterConfig) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", path, err)
	}

	writer, err := NewWriter(file, cfg)
	if err != nil {
		file.Close()
		return nil, err
	}

	writer.closer = file

	return writer, nil
}

// NewWriter emits the opening chunk layout to the passed stream: the outer
// header with a placeholder size, a JUNK region that becomes the ds64 chunk
// on promotion, the fmt chunk, the pre-data chunks, a cue reservation when
// MaxMarkers > 0, a chna placeholder when none was supplied, and the data
// chunk header.
func NewWriter(w io.WriteSeeker, cfg WriterConfig) (*Writer, error) {
	sampleFormat := FormatPCM
	if cfg.UseFloat {
		sampleFormat = FormatIEEEFloat
	}

	fmtChunk, err := newWriterFmtChunk(cfg, sampleFormat)
	if err != nil {
		return nil, err
	}

	encode, err := sampleEncodeFunc(cfg.BitDepth, sampleFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	writer := &Writer{
		w:            w,
		fmtChunk:     fmtChunk,
		encodeSample: encode,
		buf:          bytes.NewBuffer(nil),
		useRF64:      cfg.UseRF64,
	}

	err = writer.writeRiffHeader()
	if err != nil {
		return nil, err
	}

	err = writer.writeChunkPlaceholder(CIDJunk, ds64PlaceholderSize)
	if err != nil {
		return nil, err
	}

	err = writer.writeChunk(fmtChunk)
	if err != nil {
		return nil, err
	}

	for _, chunk := range cfg.PreDataChunks {
		err := writer.writeChunk(chunk)
		if err != nil {
			return nil, err
		}
	}

	if cfg.MaxMarkers > 0 && writer.cueChunk() == nil {
		cue := NewCueChunk(make([]CuePoint, cfg.MaxMarkers))

		err := writer.writeChunk(cue)
		if err != nil {
			return nil, err
		}

		cue.clear()
	}

	if writer.ChnaChunk() == nil {
		err := writer.writeChunkPlaceholder(CIDChna, MaxChnaUIDs*chnaEntryLen+4)
		if err != nil {
			return nil, err
		}
	}

	writer.dataChunk = &DataChunk{}

	err = writer.writeChunk(writer.dataChunk)
	if err != nil {
		return nil, err
	}

	writer.dataHeaderIdx = len(writer.chunkHeaders) - 1

	return writer, nil
}

func newWriterFmtChunk(cfg WriterConfig, sampleFormat uint16) (*FmtChunk, error) {
	if cfg.UseExtensible || cfg.ChannelMask != 0 {
		extra := &FmtExtensible{
			ValidBitsPerSample: uint16(cfg.BitDepth),
			ChannelMask:        correctChannelMask(cfg.ChannelMask, cfg.NumChans),
			SubFormat:          makeSubFormatGUID(sampleFormat),
		}

		return NewFmtChunk(cfg.NumChans, cfg.SampleRate, cfg.BitDepth, extra, FormatExtensible)
	}

	return NewFmtChunk(cfg.NumChans, cfg.SampleRate, cfg.BitDepth, nil, sampleFormat)
}

// FormatTag returns the stored format tag of the fmt chunk.
func (w *Writer) FormatTag() uint16 { return w.fmtChunk.FormatTag }

// NumChannels returns the channel count.
func (w *Writer) NumChannels() int { return int(w.fmtChunk.NumChannels) }

// SampleRate returns the sample rate in Hz.
func (w *Writer) SampleRate() int { return int(w.fmtChunk.SampleRate) }

// BitDepth returns the stored bits per sample.
func (w *Writer) BitDepth() int { return int(w.fmtChunk.BitsPerSample) }

// BlockAlign returns the byte size of one frame.
func (w *Writer) BlockAlign() int { return int(w.fmtChunk.BlockAlign) }

// FramesWritten returns the number of frames written so far.
func (w *Writer) FramesWritten() uint64 {
	return w.dataChunk.Size() / uint64(w.fmtChunk.BlockAlign)
}

// UseRF64ID selects the 'RF64' group ID over 'BW64' should the file need
// promotion on Close.
func (w *Writer) UseRF64ID(state bool) { w.useRF64 = state }

// FmtChunk returns a copy of the fmt chunk being written.
func (w *Writer) FmtChunk() *FmtChunk { return w.fmtChunk.Clone() }

// ChnaChunk returns the chna chunk, or nil if none was supplied yet.
func (w *Writer) ChnaChunk() *ChnaChunk {
	chunk, _ := w.chunkByID(CIDChna).(*ChnaChunk)
	return chunk
}

func (w *Writer) cueChunk() *CueChunk {
	chunk, _ := w.chunkByID(CIDCue).(*CueChunk)
	return chunk
}

func (w *Writer) chunkByID(id [4]byte) Chunk {
	for _, chunk := range w.chunks {
		if chunk.ID() == id {
			return chunk
		}
	}

	return nil
}

func (w *Writer) headerIndexByID(id [4]byte) (int, error) {
	for i := range w.chunkHeaders {
		if w.chunkHeaders[i].ID == id {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errNoSuchChunkHeader, fourCCStr(id))
}

func (w *Writer) tell() (int64, error) {
	position, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("failed to tell write position: %w", err)
	}

	return position, nil
}

func (w *Writer) writeRiffHeader() error {
	fields := []any{CIDRiff, uint32(math.MaxUint32), CIDWave}

	for _, field := range fields {
		err := binary.Write(w.w, binary.LittleEndian, field)
		if err != nil {
			return fmt.Errorf("failed to write outer header: %w", err)
		}
	}

	return nil
}

// writeChunk emits a chunk at the current write position and records its
// header. Odd payloads are followed by a pad byte.
func (w *Writer) writeChunk(chunk Chunk) error {
	position, err := w.tell()
	if err != nil {
		return err
	}

	w.chunkHeaders = append(w.chunkHeaders, ChunkHeader{
		ID:       chunk.ID(),
		Size:     chunk.Size(),
		Position: uint64(position),
	})

	err = w.writeChunkAt(chunk)
	if err != nil {
		return err
	}

	w.chunks = append(w.chunks, chunk)

	return nil
}

func (w *Writer) writeChunkAt(chunk Chunk) error {
	id := chunk.ID()

	_, err := w.w.Write(id[:])
	if err != nil {
		return fmt.Errorf("failed to write %q chunk ID: %w", fourCCStr(id), err)
	}

	err = binary.Write(w.w, binary.LittleEndian, chunkSizeForHeader(chunk.Size()))
	if err != nil {
		return fmt.Errorf("failed to write %q chunk size: %w", fourCCStr(id), err)
	}

	err = chunk.encode(w.w)
	if err != nil {
		return err
	}

	if chunk.Size()%2 == 1 {
		_, err := w.w.Write([]byte{0})
		if err != nil {
			return fmt.Errorf("failed to write %q chunk padding: %w", fourCCStr(id), err)
		}
	}

	return nil
}

func (w *Writer) writeChunkPlaceholder(id [4]byte, size uint32) error {
	position, err := w.tell()
	if err != nil {
		return err
	}

	w.chunkHeaders = append(w.chunkHeaders, ChunkHeader{
		ID:       id,
		Size:     uint64(size),
		Position: uint64(position),
	})

	_, err = w.w.Write(id[:])
	if err != nil {
		return fmt.Errorf("failed to write %q placeholder ID: %w", fourCCStr(id), err)
	}

	err = binary.Write(w.w, binary.LittleEndian, size)
	if err != nil {
		return fmt.Errorf("failed to write %q placeholder size: %w", fourCCStr(id), err)
	}

	_, err = w.w.Write(make([]byte, size))
	if err != nil {
		return fmt.Errorf("failed to write %q placeholder: %w", fourCCStr(id), err)
	}

	return nil
}

// overwriteChunk patches a reserved region in place. The new content must
// fit the reserved size; slack left behind the payload is covered with a
// JUNK header so the chunk directory stays walkable.
func (w *Writer) overwriteChunk(id [4]byte, chunk Chunk) error {
	idx, err := w.headerIndexByID(id)
	if err != nil {
		return err
	}

	reserved := w.chunkHeaders[idx].Size
	if chunk.Size() > reserved {
		return fmt.Errorf("%w: %q chunk is too large (%d bytes) to overwrite %q chunk (%d bytes)",
			ErrCapacityExceeded, fourCCStr(chunk.ID()), chunk.Size(), fourCCStr(id), reserved)
	}

	last, err := w.tell()
	if err != nil {
		return err
	}

	_, err = w.w.Seek(int64(w.chunkHeaders[idx].Position), io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to %q chunk: %w", fourCCStr(id), err)
	}

	err = w.writeChunkAt(chunk)
	if err != nil {
		return err
	}

	occupied := chunk.Size() + chunk.Size()%2
	if slack := reserved - occupied; slack >= 8 {
		_, err := w.w.Write(CIDJunk[:])
		if err != nil {
			return fmt.Errorf("failed to write slack JUNK ID: %w", err)
		}

		err = binary.Write(w.w, binary.LittleEndian, uint32(slack-8))
		if err != nil {
			return fmt.Errorf("failed to write slack JUNK size: %w", err)
		}
	}

	w.chunkHeaders[idx].ID = chunk.ID()

	_, err = w.w.Seek(last, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek back after overwriting %q chunk: %w", fourCCStr(id), err)
	}

	return nil
}

// Write encodes the buffer through the sample codec and appends the frames
// to the data chunk. The buffer is expected to hold channel-interleaved
// frames matching the writer's channel count.
func (w *Writer) Write(buf *audio.Float32Buffer) error {
	if w.closed {
		return errWriterClosed
	}

	if buf == nil || len(buf.Data) == 0 {
		return nil
	}

	if buf.Format != nil && buf.Format.NumChannels != w.NumChannels() {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errChannelMismatch)
	}

	samples := len(buf.Data) / w.NumChannels() * w.NumChannels()

	w.buf.Reset()

	for i := 0; i < samples; i++ {
		err := w.encodeSample(w.buf, buf.Data[i])
		if err != nil {
			return fmt.Errorf("failed to encode sample: %w", err)
		}
	}

	n, err := w.w.Write(w.buf.Bytes())
	w.growDataChunk(uint64(n))

	if err != nil {
		return fmt.Errorf("failed to write frames: %w", err)
	}

	return nil
}

// WriteRaw appends undecoded frame bytes to the data chunk. The slice must
// hold a whole number of frames in the writer's on-disk representation. It
// returns the number of frames written.
func (w *Writer) WriteRaw(p []byte) (int, error) {
	if w.closed {
		return 0, errWriterClosed
	}

	if len(p)%w.BlockAlign() != 0 {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, errRawBufferMisfit)
	}

	n, err := w.w.Write(p)
	w.growDataChunk(uint64(n))

	if err != nil {
		return n / w.BlockAlign(), fmt.Errorf("failed to write raw frames: %w", err)
	}

	return n / w.BlockAlign(), nil
}

func (w *Writer) growDataChunk(n uint64) {
	w.dataChunk.size += n
	w.chunkHeaders[w.dataHeaderIdx].Size = w.dataChunk.size
}

// AddMarker inserts a cue point at the given sample position into the cue
// chunk reserved at open. Duplicate IDs are rejected.
func (w *Writer) AddMarker(id uint32, position uint64, label string) error {
	if w.closed {
		return errWriterClosed
	}

	cue := w.cueChunk()
	if cue == nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errCueNotReserved)
	}

	return cue.AddMarker(id, uint32(position), label)
}

// AddCuePoint inserts an existing cue point into the reserved cue chunk.
func (w *Writer) AddCuePoint(cuePoint CuePoint) error {
	if w.closed {
		return errWriterClosed
	}

	cue := w.cueChunk()
	if cue == nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errCueNotReserved)
	}

	return cue.AddCuePoint(cuePoint)
}

// AddMarkers inserts multiple cue points.
func (w *Writer) AddMarkers(markers []CuePoint) error {
	for _, marker := range markers {
		err := w.AddCuePoint(marker)
		if err != nil {
			return err
		}
	}

	return nil
}

// SetChnaChunk patches the reserved chna region with the passed chunk. The
// placeholder holds up to MaxChnaUIDs records.
func (w *Writer) SetChnaChunk(chunk *ChnaChunk) error {
	if w.closed {
		return errWriterClosed
	}

	if chunk.NumUIDs() > MaxChnaUIDs {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, errTooManyUIDs)
	}

	err := w.overwriteChunk(CIDChna, chunk)
	if err != nil {
		return err
	}

	w.replaceChunk(CIDChna, chunk)

	return nil
}

func (w *Writer) replaceChunk(id [4]byte, chunk Chunk) {
	for i := range w.chunks {
		if w.chunks[i].ID() == id {
			w.chunks[i] = chunk
			return
		}
	}

	w.chunks = append(w.chunks, chunk)
}

// SetAxmlChunk queues the axml chunk to be written after the data chunk.
func (w *Writer) SetAxmlChunk(chunk *AxmlChunk) error {
	return w.PostDataChunk(chunk)
}

// PostDataChunk queues a chunk to be written after the data chunk on Close.
func (w *Writer) PostDataChunk(chunk Chunk) error {
	if w.closed {
		return errWriterClosed
	}

	w.postDataChunks = append(w.postDataChunks, chunk)

	return nil
}

// Close finalizes and closes the file: it pads the data chunk, patches the
// data header, serializes markers and their labels, appends the post-data
// chunks and patches the outer header, promoting the file to BW64/RF64 when
// any size outgrew 32 bits. The file handle is released even when
// finalization fails; the Writer must not be used afterwards.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	err := w.finalize()

	if w.closer != nil {
		closeErr := w.closer.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("file error detected when closing: %w", closeErr)
		}

		w.closer = nil
	}

	return err
}

func (w *Writer) finalize() error {
	err := w.finalizeDataChunk()
	if err != nil {
		return err
	}

	// markers must be finalized before the post data chunks are written so
	// the label LIST chunk ends up in the queue
	err = w.finalizeCueChunk()
	if err != nil {
		return err
	}

	for _, chunk := range w.postDataChunks {
		err := w.writeChunk(chunk)
		if err != nil {
			return err
		}
	}

	return w.finalizeRiffChunk()
}

func (w *Writer) finalizeDataChunk() error {
	_, err := w.w.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if w.dataChunk.Size()%2 == 1 {
		_, err := w.w.Write([]byte{0})
		if err != nil {
			return fmt.Errorf("failed to write data chunk padding: %w", err)
		}
	}

	last, err := w.tell()
	if err != nil {
		return err
	}

	_, err = w.w.Seek(int64(w.chunkHeaders[w.dataHeaderIdx].Position), io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to data chunk header: %w", err)
	}

	_, err = w.w.Write(CIDData[:])
	if err != nil {
		return fmt.Errorf("failed to write data chunk ID: %w", err)
	}

	err = binary.Write(w.w, binary.LittleEndian, chunkSizeForHeader(w.dataChunk.Size()))
	if err != nil {
		return fmt.Errorf("failed to write data chunk size: %w", err)
	}

	_, err = w.w.Seek(last, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek back after patching data chunk: %w", err)
	}

	return nil
}

func (w *Writer) finalizeCueChunk() error {
	cue := w.cueChunk()
	if cue == nil || len(cue.cuePoints) == 0 {
		return nil
	}

	labels := cue.labels()
	if len(labels) > 0 {
		subChunks := make([]Chunk, 0, len(labels))
		for i := range labels {
			subChunks = append(subChunks, &labels[i])
		}

		w.postDataChunks = append(w.postDataChunks, NewAdtlChunk(subChunks...))
	}

	return w.overwriteChunk(CIDCue, cue)
}

// isBW64File reports whether the total file size or any chunk size needs
// more than 32 bits.
func (w *Writer) isBW64File() (bool, error) {
	riffSize, err := w.riffChunkSize()
	if err != nil {
		return false, err
	}

	if riffSize > math.MaxUint32 {
		return true, nil
	}

	for _, header := range w.chunkHeaders {
		if header.Size > math.MaxUint32 {
			return true, nil
		}
	}

	return false, nil
}

func (w *Writer) riffChunkSize() (uint64, error) {
	end, err := w.w.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to seek to end of file: %w", err)
	}

	return uint64(end) - 8, nil
}

func (w *Writer) finalizeRiffChunk() error {
	riffSize, err := w.riffChunkSize()
	if err != nil {
		return err
	}

	isBW64, err := w.isBW64File()
	if err != nil {
		return err
	}

	_, err = w.w.Seek(0, io.SeekStart)
	if err != nil {
		return fmt.Errorf("failed to seek to outer header: %w", err)
	}

	if isBW64 {
		groupID := CIDBW64
		if w.useRF64 {
			groupID = CIDRF64
		}

		_, err := w.w.Write(groupID[:])
		if err != nil {
			return fmt.Errorf("failed to write group ID: %w", err)
		}

		err = binary.Write(w.w, binary.LittleEndian, uint32(math.MaxUint32))
		if err != nil {
			return fmt.Errorf("failed to write group size: %w", err)
		}

		err = w.overwriteJunkWithDs64Chunk(riffSize)
		if err != nil {
			return err
		}
	} else {
		_, err := w.w.Write(CIDRiff[:])
		if err != nil {
			return fmt.Errorf("failed to write group ID: %w", err)
		}

		err = binary.Write(w.w, binary.LittleEndian, uint32(riffSize))
		if err != nil {
			return fmt.Errorf("failed to write group size: %w", err)
		}
	}

	_, err = w.w.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	return nil
}

func (w *Writer) overwriteJunkWithDs64Chunk(riffSize uint64) error {
	// the data size is recorded even when it alone would still fit 32 bits
	ds64 := NewDataSize64Chunk(riffSize, w.dataChunk.Size())

	for _, header := range w.chunkHeaders {
		if header.Size > math.MaxUint32 {
			ds64.SetChunkSize(header.ID, header.Size)
		}
	}

	return w.overwriteChunk(CIDJunk, ds64)
}
