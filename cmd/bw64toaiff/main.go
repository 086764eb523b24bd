// This tool converts a BW64/RF64/WAVE file into an AIFF file and stores it
// in the same folder as the source. Broadcast metadata is dropped.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/bw64"
	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

var flagPath = flag.String("path", "", "The path to the bw64 file to convert to aiff")

func main() {
	flag.Parse()

	if *flagPath == "" {
		fmt.Println("You must set the -path flag")
		os.Exit(1)
	}

	err := convert(*flagPath)
	if err != nil {
		log.Fatal(err)
	}
}

func convert(sourcePath string) error {
	reader, err := bw64.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("invalid BW64 file %s: %w", sourcePath, err)
	}
	defer reader.Close()

	outPath := sourcePath[:len(sourcePath)-len(filepath.Ext(sourcePath))] + ".aif"

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer outFile.Close()

	encoder := aiff.NewEncoder(outFile, reader.SampleRate(), reader.BitDepth(), reader.NumChannels())

	buf := &audio.Float32Buffer{
		Data:   make([]float32, 1000000),
		Format: reader.Format(),
	}

	for {
		num, err := reader.Read(buf)
		if err != nil {
			return err
		}

		if num == 0 {
			break
		}

		data := buf.Data[:num*reader.NumChannels()]

		err = encoder.Write(float32ToIntBuffer(data, reader.Format(), reader.BitDepth()))
		if err != nil {
			return err
		}
	}

	err = encoder.Close()
	if err != nil {
		return err
	}

	fmt.Printf("BW64 file converted to %s\n", outPath)

	return nil
}

func float32ToIntBuffer(data []float32, format *audio.Format, bitDepth int) *audio.IntBuffer {
	intBuf := &audio.IntBuffer{
		Format:         format,
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(data)),
	}
	for i, v := range data {
		intBuf.Data[i] = float32ToPCMInt(v, bitDepth)
	}

	return intBuf
}

func float32ToPCMInt(value float32, bitDepth int) int {
	value = clampFloat32(value, -1, 1)

	switch bitDepth {
	case 8:
		return int(float32ToPCMUint8(value))
	case 16, 24, 32:
		return int(float32ToPCMInt32(value, bitDepth))
	default:
		return 0
	}
}

func float32ToPCMUint8(value float32) uint8 {
	scaled := int(math.Round(float64((value + 1.0) * 127.5)))
	if scaled < 0 {
		return 0
	}

	if scaled > 255 {
		return 255
	}

	return uint8(scaled)
}

func float32ToPCMInt32(value float32, bitDepth int) int32 {
	scale := float64(int64(1) << (bitDepth - 1))

	sample := math.Round(float64(value) * scale)
	if sample > scale-1 {
		sample = scale - 1
	}

	if sample < -scale {
		sample = -scale
	}

	return int32(sample)
}

func clampFloat32(value, min, max float32) float32 {
	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}
