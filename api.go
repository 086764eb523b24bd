package bw64

import "fmt"

// WriteFile opens a new BW64 file for writing with the given sample layout,
// adding the chna and axml chunks before the data chunk when supplied,
// which is the recommended practice if all components are already known
// before writing.
func WriteFile(path string, numChans, sampleRate, bitDepth int, chna *ChnaChunk, axml *AxmlChunk) (*Writer, error) {
	var preDataChunks []Chunk

	if chna != nil {
		preDataChunks = append(preDataChunks, chna)
	}

	if axml != nil {
		preDataChunks = append(preDataChunks, axml)
	}

	return CreateFile(path, WriterConfig{
		NumChans:      numChans,
		SampleRate:    sampleRate,
		BitDepth:      bitDepth,
		PreDataChunks: preDataChunks,
	})
}

// DefaultChnaChunk builds a chna chunk with one track UID per channel,
// using sequentially numbered ADM references.
func DefaultChnaChunk(numChans int) *ChnaChunk {
	chna := &ChnaChunk{}

	for ch := 1; ch <= numChans; ch++ {
		chna.AddAudioID(AudioID{
			TrackIndex: uint16(ch),
			UID:        fmt.Sprintf("ATU_%08d", ch),
			TrackRef:   fmt.Sprintf("AT_000100%02d_01", ch),
			PackRef:    "AP_00010001",
		})
	}

	return chna
}

// CreateFileWithMarkers opens a new BW64 file for writing with the passed
// markers already inserted, reserving exactly enough cue capacity for them.
// A default chna chunk is synthesized when the config carries none.
func CreateFileWithMarkers(path string, cfg WriterConfig, markers []CuePoint) (*Writer, error) {
	cfg.MaxMarkers = len(markers)

	if !hasChnaChunk(cfg.PreDataChunks) {
		cfg.PreDataChunks = append(cfg.PreDataChunks, DefaultChnaChunk(cfg.NumChans))
	}

	writer, err := CreateFile(path, cfg)
	if err != nil {
		return nil, err
	}

	err = writer.AddMarkers(markers)
	if err != nil {
		writer.Close()
		return nil, err
	}

	return writer, nil
}

// CreateFileWithMaxMarkers opens a new BW64 file for writing with cue
// capacity for maxMarkers markers added later. A default chna chunk is
// synthesized when the config carries none.
func CreateFileWithMaxMarkers(path string, cfg WriterConfig, maxMarkers int) (*Writer, error) {
	cfg.MaxMarkers = maxMarkers

	if !hasChnaChunk(cfg.PreDataChunks) {
		cfg.PreDataChunks = append(cfg.PreDataChunks, DefaultChnaChunk(cfg.NumChans))
	}

	return CreateFile(path, cfg)
}

func hasChnaChunk(chunks []Chunk) bool {
	for _, chunk := range chunks {
		if chunk.ID() == CIDChna {
			return true
		}
	}

	return false
}
