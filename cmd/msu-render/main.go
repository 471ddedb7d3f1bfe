// Command msu-render renders a pack configuration file into MSU-1 PCM
// track files, the pack marker file and the track-list sidecar.
//
// Usage:
//
//	msu-render pack.yaml                  # render all tracks
//	msu-render -track 5 pack.yaml         # render a single track
//	msu-render -track 5 -raw pack.yaml    # bare trimmed/reordered PCM only
//	msu-render -parallel pack.yaml        # render tracks concurrently
//
// Raw output applies trimming and loop-point reordering but no
// normalization, fades or padding, and carries no header; it exists for
// auditioning loop placement in an external editor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/CPColin/msu/internal/decode"
	"github.com/CPColin/msu/internal/pipeline"
)

const noTrack = -1

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	track := flag.Int("track", noTrack, "Render only this track number")
	raw := flag.Bool("raw", false, "Write bare PCM with no header, padding, gain or fades (requires -track)")
	parallel := flag.Bool("parallel", false, "Render tracks concurrently")
	ffmpeg := flag.String("ffmpeg", "", "Path to the external decoder binary (default: ffmpeg from PATH)")
	timeout := flag.Duration("timeout", decode.DefaultTimeout, "Timeout per external decoder invocation")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] pack.yaml\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		return fmt.Errorf("expected exactly one configuration file")
	}

	if *raw && *track == noTrack {
		return fmt.Errorf("-raw requires -track")
	}

	p := pipeline.New(pipeline.Options{
		FFmpegPath:    *ffmpeg,
		DecodeTimeout: *timeout,
		Parallel:      *parallel,
		Verbose:       *verbose,
	})

	start := time.Now()
	ctx := context.Background()

	var err error
	if *track == noTrack {
		err = p.RenderPack(ctx, args[0])
	} else {
		err = p.RenderTrack(ctx, args[0], *track, *raw)
	}
	if err != nil {
		return err
	}

	if *verbose {
		log.Printf("Done in %.2fs", time.Since(start).Seconds())
	}

	return nil
}
