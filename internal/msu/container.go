// Package msu reads and writes the MSU-1 binary track container and the
// pack-level output files around it: the marker file playback hardware uses
// to recognize a pack and the track-list sidecar.
//
// Container layout: 4 bytes ASCII magic "MSU1", a 4-byte little-endian
// unsigned loop-point frame index, then interleaved little-endian 16-bit
// signed stereo sample pairs. Playback seeks back to 8 + loop*4 whenever it
// reaches end of file.
package msu

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CPColin/msu/internal/pcm"
)

// Magic identifies the container format.
const Magic = "MSU1"

// HeaderSize is the byte offset where sample data begins.
const HeaderSize = 8

var (
	// ErrLoopOutOfRange is returned when a computed loop point falls at or
	// beyond the end of the rendered buffer. Such a file must never be
	// written: playback hardware behavior on it is undefined.
	ErrLoopOutOfRange = errors.New("loop point outside rendered audio")

	// ErrBadMagic is returned when reading a file that does not start with
	// the container magic.
	ErrBadMagic = errors.New("not an MSU-1 container")
)

// TrackPath returns the container filename for a track number under the
// pack's output prefix.
func TrackPath(prefix string, number int) string {
	return fmt.Sprintf("%s-%d.pcm", prefix, number)
}

// WriteTrack writes a rendered buffer and its loop point as a container
// file. The loop point is validated before any bytes are written, and the
// data is staged under a temporary name and renamed into place, so a failed
// write never leaves a truncated container at the track path.
func WriteTrack(path string, samples []int16, loop int) error {
	frames := pcm.Frames(samples)
	if loop < 0 || loop >= frames {
		return fmt.Errorf("%w: loop %d, rendered %d frames", ErrLoopOutOfRange, loop, frames)
	}

	staging := path + ".partial"

	f, err := os.Create(staging)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)

	header := make([]byte, HeaderSize)
	copy(header[0:4], Magic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(loop))

	_, err = w.Write(header)
	if err == nil {
		_, err = w.Write(pcm.Bytes(samples))
	}
	if err == nil {
		err = w.Flush()
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(staging)
		return err
	}

	return os.Rename(staging, path)
}

// WriteRaw writes bare sample bytes with no header and no padding, for
// inspecting trim and loop placement in an external audio editor.
func WriteRaw(path string, samples []int16) error {
	return os.WriteFile(path, pcm.Bytes(samples), 0o644)
}

// WriteMarker creates the empty <prefix>.msu file that playback hardware
// and emulators require before they treat a directory as a pack.
func WriteMarker(prefix string) error {
	return os.WriteFile(prefix+".msu", nil, 0o644)
}

// Header is the parsed leading portion of a container file.
type Header struct {
	Loop   int
	Frames int
}

// ReadHeader parses and validates a container file, returning its loop
// point and total frame count. This is the contract the playback side
// enforces: an unrecognized magic rejects the file, and a loop point at or
// beyond end of file is unplayable.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
	}
	if string(header[0:4]) != Magic {
		return nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	h := &Header{
		Loop:   int(binary.LittleEndian.Uint32(header[4:8])),
		Frames: int(info.Size()-HeaderSize) / pcm.FrameBytes,
	}

	if h.Loop >= h.Frames {
		return nil, fmt.Errorf("%w: loop %d, file holds %d frames", ErrLoopOutOfRange, h.Loop, h.Frames)
	}

	return h, nil
}
