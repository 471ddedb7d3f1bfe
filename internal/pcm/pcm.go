// Package pcm implements the sample codec for the fixed MSU-1 audio format:
// 44.1kHz, 16-bit signed, interleaved stereo. A frame is one left/right
// sample pair; loop points, trims and pads are all measured in frames.
package pcm

import (
	"encoding/binary"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// SampleRate is the only sample rate the container format supports.
	SampleRate = 44100

	// Channels is the fixed channel count (stereo).
	Channels = 2

	// BytesPerSample is the width of one 16-bit sample.
	BytesPerSample = 2

	// FrameBytes is the byte size of one interleaved stereo frame.
	FrameBytes = Channels * BytesPerSample

	// MaxSampleValue is the maximum magnitude of a 16-bit signed sample,
	// used as the reference for RMS normalization.
	MaxSampleValue = 32767
)

// Samples converts little-endian PCM bytes to int16 samples.
// An odd trailing byte is dropped to keep int16 alignment.
func Samples(b []byte) []int16 {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}

	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}

	return samples
}

// Bytes converts int16 samples to little-endian PCM bytes.
func Bytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	return buf
}

// Frames returns the number of stereo frames in an interleaved sample slice.
func Frames(samples []int16) int {
	return len(samples) / Channels
}

// RMS computes the root-mean-square power of an interleaved stereo buffer,
// normalized against MaxSampleValue so a full-scale square wave measures 1.0.
// Each channel's mean square is computed independently, the two are averaged,
// and the square root of the combined power is taken.
func RMS(samples []int16) float64 {
	frames := Frames(samples)
	if frames == 0 {
		return 0
	}

	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := range frames {
		left[i] = float64(samples[i*Channels])
		right[i] = float64(samples[i*Channels+1])
	}

	leftPower := floats.Dot(left, left) / float64(frames)
	rightPower := floats.Dot(right, right) / float64(frames)

	return math.Sqrt((leftPower+rightPower)/2) / MaxSampleValue
}

// ToLinear converts an amplification value to a linear factor. Negative
// values are decibels (linear = 10^(dB/20)); nonnegative values are already
// linear.
func ToLinear(v float64) float64 {
	if v < 0 {
		return math.Pow(10, v/20)
	}

	return v
}

// ToDecibels converts a linear factor to decibels (20 * log10(x)).
func ToDecibels(x float64) float64 {
	return 20 * math.Log10(x)
}

// Clamp saturates a float sample to the 16-bit signed range. Mixing and
// amplification are computed in floating point and narrowed exactly once,
// through this function.
func Clamp(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}

	return int16(v)
}
