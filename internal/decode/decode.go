// Package decode turns source media files into raw PCM at the fixed
// container format. WAV and FLAC sources decode in-process; everything else
// is delegated to an external ffmpeg invocation that is asked for 44.1kHz
// 16-bit stereo directly.
package decode

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/CPColin/msu/internal/pcm"
)

// ErrDecodeFailed is wrapped by every decode error: a failed or timed-out
// decoder process, an unreadable source file, or a source that produced no
// audio. A decode failure is fatal for the offending track only.
var ErrDecodeFailed = errors.New("decode failed")

// DefaultTimeout bounds a single external decoder invocation.
const DefaultTimeout = 5 * time.Minute

// Decoder decodes source files to interleaved stereo int16 samples at the
// container rate. The zero value uses "ffmpeg" from PATH with
// DefaultTimeout. Decoders are stateless and safe for concurrent use.
type Decoder struct {
	// FFmpegPath overrides the external decoder binary.
	FFmpegPath string

	// Timeout bounds each external decoder invocation. Native decode
	// paths are not subject to it.
	Timeout time.Duration
}

// Decode decodes the file at path, dispatching on its extension.
func (d *Decoder) Decode(ctx context.Context, path string) ([]int16, error) {
	var (
		samples []int16
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, err = decodeWAV(path)
	case ".flac":
		samples, err = decodeFLAC(path)
	default:
		samples, err = d.decodeExternal(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
	}

	if pcm.Frames(samples) == 0 {
		return nil, fmt.Errorf("%w: %s: decoder produced no audio", ErrDecodeFailed, path)
	}

	return samples, nil
}

// decodeExternal shells out to ffmpeg and drains its stdout. The container
// format is requested directly so no further conversion is needed.
func (d *Decoder) decodeExternal(ctx context.Context, path string) ([]int16, error) {
	binary := d.FFmpegPath
	if binary == "" {
		binary = "ffmpeg"
	}

	timeout := d.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(pcm.SampleRate),
		"-ac", fmt.Sprint(pcm.Channels),
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %s", binary, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}

	return pcm.Samples(out), nil
}

// toStereo widens a mono channel to interleaved stereo by duplication, or
// passes interleaved stereo through.
func toStereo(samples []int16, channels int) ([]int16, error) {
	switch channels {
	case pcm.Channels:
		return samples, nil
	case 1:
		out := make([]int16, len(samples)*pcm.Channels)
		for i, s := range samples {
			out[i*pcm.Channels] = s
			out[i*pcm.Channels+1] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
}

// scaleToInt16 narrows or widens a sample of the given bit depth to 16 bits
// by shifting.
func scaleToInt16(sample int, bitDepth int) int16 {
	switch {
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth < 16:
		return int16(sample << (16 - bitDepth))
	default:
		return int16(sample)
	}
}
