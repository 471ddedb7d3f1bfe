package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPColin/msu/internal/pcm"
	"github.com/CPColin/msu/internal/testutil"
)

func TestChannelOutputLength(t *testing.T) {
	tests := []struct {
		name   string
		frames int
		ratio  float64
	}{
		{"upsample_2x", 1000, 2.0},
		{"downsample_half", 1000, 0.5},
		{"cd_to_dat", 4410, 48000.0 / 44100.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := make([]float64, tt.frames)
			output := Channel(input, tt.ratio)

			want := float64(tt.frames) * tt.ratio
			assert.InDelta(t, want, float64(len(output)), 4, "output length should track the ratio")
		})
	}
}

func TestChannelPreservesConstantSignal(t *testing.T) {
	input := make([]float64, 500)
	for i := range input {
		input[i] = 0.75
	}

	output := Channel(input, 2.0)

	// Skip the interpolator's warm-up window, then the signal should hold.
	for i := 8; i < len(output); i++ {
		assert.InDelta(t, 0.75, output[i], 1e-9, "output[%d]", i)
	}
}

func TestChannelInterpolatesSmoothly(t *testing.T) {
	// A low-frequency sine should survive 2x upsampling without gross
	// amplitude error.
	input := make([]float64, 1024)
	for i := range input {
		input[i] = math.Sin(2 * math.Pi * float64(i) / 64)
	}

	output := Channel(input, 2.0)

	var peak float64
	for _, v := range output[16:] {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	assert.InDelta(t, 1.0, peak, 0.05)
}

func TestStereoIdentityRatePassesThrough(t *testing.T) {
	input := testutil.StereoRamp(100)

	output := Stereo(input, pcm.SampleRate)

	assert.Equal(t, input, output)
}

func TestStereoKeepsFramesPaired(t *testing.T) {
	input := testutil.StereoConst(1000, 5000, -5000)

	output := Stereo(input, 22050)

	require.Equal(t, 0, len(output)%pcm.Channels)
	assert.InDelta(t, 2000, pcm.Frames(output), 8)

	// Channels stay aligned after conversion.
	mid := pcm.Frames(output) / 2
	assert.InDelta(t, 5000, float64(output[mid*pcm.Channels]), 2)
	assert.InDelta(t, -5000, float64(output[mid*pcm.Channels+1]), 2)
}
