package bw64_test

import (
	"fmt"
	"log"

	"github.com/cwbudde/bw64"
	"github.com/go-audio/audio"
)

// Write a one second 48 kHz PCM file with a labeled marker.
func Example() {
	writer, err := bw64.CreateFile("out.wav", bw64.WriterConfig{
		NumChans:   1,
		SampleRate: 48000,
		BitDepth:   24,
		MaxMarkers: 1,
	})
	if err != nil {
		log.Fatal(err)
	}

	buf := &audio.Float32Buffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:   make([]float32, 48000),
	}

	if err := writer.Write(buf); err != nil {
		log.Fatal(err)
	}

	if err := writer.AddMarker(1, 24000, "midpoint"); err != nil {
		log.Fatal(err)
	}

	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
}

func ExampleReader_Markers() {
	reader, err := bw64.ReadFile("out.wav")
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	for _, marker := range reader.Markers() {
		fmt.Printf("%d\t%q\n", marker.Position, marker.Label)
	}
}

func ExampleWriter_SetAxmlChunk() {
	writer, err := bw64.WriteFile("adm.wav", 2, 48000, 24, bw64.DefaultChnaChunk(2), nil)
	if err != nil {
		log.Fatal(err)
	}

	if err := writer.SetAxmlChunk(bw64.NewAxmlChunk([]byte("<audioFormatExtended/>"))); err != nil {
		log.Fatal(err)
	}

	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}
}
