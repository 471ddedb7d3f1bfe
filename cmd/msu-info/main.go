// Command msu-info inspects rendered MSU-1 container files: it validates
// the magic, reports the loop point and duration, and exits nonzero when a
// file would be unplayable on target hardware.
//
// Usage:
//
//	msu-info track-1.pcm [track-2.pcm ...]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/CPColin/msu/internal/msu"
	"github.com/CPColin/msu/internal/pcm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s file.pcm [file.pcm ...]\n", os.Args[0])
		return fmt.Errorf("expected at least one container file")
	}

	for _, path := range args {
		header, err := msu.ReadHeader(path)
		if err != nil {
			return err
		}

		seconds := float64(header.Frames) / pcm.SampleRate
		loopSeconds := float64(header.Loop) / pcm.SampleRate
		fmt.Printf("%s: %d frames (%.2fs), loop at frame %d (%.2fs)\n",
			path, header.Frames, seconds, header.Loop, loopSeconds)
	}

	return nil
}
