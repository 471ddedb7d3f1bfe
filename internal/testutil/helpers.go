// Package testutil provides reusable helpers for track rendering tests:
// deterministic sample buffer generators and WAV fixture writing.
package testutil

import (
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/CPColin/msu/internal/pcm"
)

// Ptr returns a pointer to v, for filling optional configuration fields.
func Ptr[T any](v T) *T {
	return &v
}

// StereoRamp generates an interleaved stereo buffer whose left channel
// counts up from 0 and whose right channel counts down from 0, one step per
// frame. Frame indices stay recoverable from sample values, which makes
// trim and reorder results easy to assert on.
func StereoRamp(frames int) []int16 {
	samples := make([]int16, frames*pcm.Channels)
	for i := range frames {
		samples[i*pcm.Channels] = int16(i)
		samples[i*pcm.Channels+1] = int16(-i)
	}

	return samples
}

// StereoConst generates an interleaved stereo buffer holding the same
// left/right pair in every frame.
func StereoConst(frames int, left, right int16) []int16 {
	samples := make([]int16, frames*pcm.Channels)
	for i := range frames {
		samples[i*pcm.Channels] = left
		samples[i*pcm.Channels+1] = right
	}

	return samples
}

// WriteWAV writes interleaved stereo int16 samples as a 16-bit WAV file at
// the given rate, for exercising the native decode path without an
// external decoder.
func WriteWAV(t *testing.T, path string, samples []int16, rate int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, pcm.Channels, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	buf := &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: pcm.Channels, SampleRate: rate},
		SourceBitDepth: 16,
	}

	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}
