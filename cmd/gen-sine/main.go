package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/cwbudde/bw64"
	"github.com/go-audio/audio"
)

func main() {
	err := run()
	if err != nil {
		log.Fatal(err)
	}
}

func run() error {
	output := flag.String("output", "output.wav", "filename to write to")
	frequency := flag.Float64("frequency", 440, "frequency in hertz to generate")
	length := flag.Float64("length", 5, "length in seconds of output file")
	sampleRate := flag.Int("samplerate", 48000, "sample rate in hertz")
	bitDepth := flag.Int("bitdepth", 16, "bits per sample")
	useFloat := flag.Bool("float", false, "store IEEE float samples instead of PCM")
	flag.Parse()

	log.Printf("generating a %f sec sine at %f hz", *length, *frequency)

	writer, err := bw64.CreateFile(*output, bw64.WriterConfig{
		NumChans:   1,
		SampleRate: *sampleRate,
		BitDepth:   *bitDepth,
		UseFloat:   *useFloat,
	})
	if err != nil {
		return fmt.Errorf("error creating %s: %w", *output, err)
	}

	numSamples := int(float64(*sampleRate) * *length)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: *sampleRate},
		Data:   make([]float32, 4096),
	}

	for offset := 0; offset < numSamples; offset += len(buf.Data) {
		n := min(len(buf.Data), numSamples-offset)

		for i := 0; i < n; i++ {
			buf.Data[i] = float32(math.Sin(float64(offset+i) / float64(*sampleRate) * *frequency * 2 * math.Pi))
		}

		buf.Data = buf.Data[:n]

		err := writer.Write(buf)
		if err != nil {
			writer.Close()
			return err
		}
	}

	return writer.Close()
}
