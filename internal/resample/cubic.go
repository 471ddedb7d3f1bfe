// Package resample implements cubic Hermite (4-point, 3rd order) sample
// rate conversion. It exists for the native decode paths: sources decoded
// in-process arrive at whatever rate the file carries and must be converted
// to the fixed 44.1kHz container rate. The external decoder resamples on its
// own and never goes through this package.
package resample

import (
	"math"

	"github.com/CPColin/msu/internal/pcm"
)

// Hermite basis coefficients.
const (
	hermiteHalf         = 0.5
	hermiteOneHalf      = 1.5
	hermiteTwoHalf      = 2.5
	interpolationPoints = 4
)

// converter holds the rolling 4-point window for one channel.
type converter struct {
	ratio   float64
	phase   float64
	history [interpolationPoints]float64
}

// Channel resamples one channel of audio by ratio (output rate / input
// rate) using cubic Hermite interpolation.
func Channel(input []float64, ratio float64) []float64 {
	c := converter{ratio: ratio}
	output := make([]float64, 0, int(math.Ceil(float64(len(input))*ratio)))

	for _, sample := range input {
		c.history[3] = c.history[2]
		c.history[2] = c.history[1]
		c.history[1] = c.history[0]
		c.history[0] = sample

		for c.phase < 1.0 {
			output = append(output, c.interpolate(c.phase))
			c.phase += 1.0 / c.ratio
		}
		c.phase -= 1.0
	}

	return output
}

// interpolate evaluates the Hermite polynomial at fractional position x.
// The coefficients give a smooth curve with a continuous first derivative.
func (c *converter) interpolate(x float64) float64 {
	y0 := c.history[3] // oldest
	y1 := c.history[2]
	y2 := c.history[1]
	y3 := c.history[0] // newest

	coefA := -hermiteHalf*y0 + hermiteOneHalf*y1 - hermiteOneHalf*y2 + hermiteHalf*y3
	coefB := y0 - hermiteTwoHalf*y1 + 2*y2 - hermiteHalf*y3
	coefC := -hermiteHalf*y0 + hermiteHalf*y2
	coefD := y1

	return ((coefA*x+coefB)*x+coefC)*x + coefD
}

// Stereo converts interleaved stereo int16 samples from fromRate to the
// fixed container rate. Channels are converted independently; the shorter
// converted channel bounds the output so frames stay paired.
func Stereo(samples []int16, fromRate int) []int16 {
	if fromRate == pcm.SampleRate {
		return samples
	}

	frames := pcm.Frames(samples)
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := range frames {
		left[i] = float64(samples[i*pcm.Channels])
		right[i] = float64(samples[i*pcm.Channels+1])
	}

	ratio := float64(pcm.SampleRate) / float64(fromRate)
	leftOut := Channel(left, ratio)
	rightOut := Channel(right, ratio)

	outFrames := min(len(leftOut), len(rightOut))
	out := make([]int16, outFrames*pcm.Channels)
	for i := range outFrames {
		out[i*pcm.Channels] = pcm.Clamp(leftOut[i])
		out[i*pcm.Channels+1] = pcm.Clamp(rightOut[i])
	}

	return out
}
