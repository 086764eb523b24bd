// This tool prints the format, chunk inventory and broadcast metadata of
// the passed BW64/RF64/WAVE file.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/bw64"
)

const missingPathMessage = "You must pass the path of the file to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

var errMissingPath = errors.New("missing path argument")

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingPath
	}

	reader, err := bw64.ReadFile(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	format := reader.FileFormat()
	fmt.Fprintf(out, "File format: %s\n", format[:])
	fmt.Fprintf(out, "Format tag: %d\n", reader.FormatTag())
	fmt.Fprintf(out, "Channels: %d\n", reader.NumChannels())
	fmt.Fprintf(out, "Sample rate: %d\n", reader.SampleRate())
	fmt.Fprintf(out, "Bit depth: %d\n", reader.BitDepth())
	fmt.Fprintf(out, "Frames: %d\n", reader.NumberOfFrames())
	fmt.Fprintf(out, "Duration: %s\n", reader.Duration())

	fmt.Fprintln(out, "Chunks:")

	for _, header := range reader.ChunkHeaders() {
		fmt.Fprintf(out, "\t%s\t%d bytes at offset %d\n", header.ID[:], header.Size, header.Position)
	}

	if chna := reader.ChnaChunk(); chna != nil {
		fmt.Fprintf(out, "chna: %d tracks, %d UIDs\n", chna.NumTracks(), chna.NumUIDs())

		for _, id := range chna.AudioIDs {
			fmt.Fprintf(out, "\ttrack %d\t%s %s %s\n", id.TrackIndex, id.UID, id.TrackRef, id.PackRef)
		}
	}

	if axml := reader.AxmlChunk(); axml != nil {
		fmt.Fprintf(out, "axml: %d bytes of ADM metadata\n", len(axml.Data))
	}

	if bext := reader.BextChunk(); bext != nil {
		fmt.Fprintf(out, "bext: %q by %q\n", bext.Description, bext.Originator)
	}

	for _, marker := range reader.Markers() {
		fmt.Fprintf(out, "marker %d at sample %d: %q\n", marker.ID, marker.Position, marker.Label)
	}

	return nil
}
