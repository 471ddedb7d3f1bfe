package render

import (
	"github.com/tphakala/simd/f64"

	"github.com/CPColin/msu/internal/pcm"
	"github.com/CPColin/msu/internal/resolve"
)

// GainFactor derives the linear amplification factor for a track, given the
// current RMS power of its trimmed buffer. Priority order: explicit
// amplification on the track, RMS target on the track, amplification on the
// pack, RMS target on the pack, then unity. Negative values are decibels;
// see pcm.ToLinear.
func GainFactor(res *resolve.Resolved, currentRMS float64) float64 {
	switch {
	case res.Amplification != nil:
		return pcm.ToLinear(*res.Amplification)
	case res.RMSTarget != nil:
		return rmsFactor(*res.RMSTarget, currentRMS)
	case res.PackAmplification != nil:
		return pcm.ToLinear(*res.PackAmplification)
	case res.PackRMSTarget != nil:
		return rmsFactor(*res.PackRMSTarget, currentRMS)
	default:
		return 1.0
	}
}

// rmsFactor scales the buffer toward a target loudness. A silent buffer has
// no meaningful RMS and passes through untouched.
func rmsFactor(target, current float64) float64 {
	if current == 0 {
		return 1.0
	}

	return pcm.ToLinear(target) / current
}

// FadeEnvelope returns the fade multiplier for one frame of a buffer that
// is total frames long. Outside the fade windows the multiplier is 1;
// within the first fadeIn frames it ramps linearly from 0 to 1, within the
// last fadeOut frames linearly from 1 to 0. Overlapping windows compose
// multiplicatively.
func FadeEnvelope(index, total, fadeIn, fadeOut int) float64 {
	envelope := 1.0

	if fadeIn > 0 && index < fadeIn {
		envelope *= float64(index) / float64(fadeIn)
	}
	if fadeOut > 0 && index >= total-fadeOut {
		envelope *= float64(total-index) / float64(fadeOut)
	}

	return envelope
}

// Apply multiplies a buffer by the gain factor and fade envelope in a
// single floating-point pass, narrowing back to 16 bits exactly once.
// Fades operate on frames so both channels move together. The result is a
// new buffer; the input is never modified.
func Apply(samples []int16, factor float64, fadeIn, fadeOut int) []int16 {
	if factor == 1.0 && fadeIn == 0 && fadeOut == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	// Constant gain with no fade windows vectorizes.
	if fadeIn == 0 && fadeOut == 0 {
		scaled := make([]float64, len(samples))
		for i, s := range samples {
			scaled[i] = float64(s)
		}
		f64.Scale(scaled, scaled, factor)

		out := make([]int16, len(samples))
		for i, v := range scaled {
			out[i] = pcm.Clamp(v)
		}
		return out
	}

	total := pcm.Frames(samples)
	out := make([]int16, len(samples))
	for frame := range total {
		gain := factor * FadeEnvelope(frame, total, fadeIn, fadeOut)
		for ch := range pcm.Channels {
			i := frame*pcm.Channels + ch
			out[i] = pcm.Clamp(float64(samples[i]) * gain)
		}
	}

	return out
}
