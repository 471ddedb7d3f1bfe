package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/CPColin/msu/internal/pcm"
	"github.com/CPColin/msu/internal/resample"
)

// decodeWAV reads a WAV file in-process and normalizes it to the container
// format: 16-bit samples, stereo, 44.1kHz.
func decodeWAV(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = scaleToInt16(s, bitDepth)
	}

	samples, err = toStereo(samples, buf.Format.NumChannels)
	if err != nil {
		return nil, err
	}

	if buf.Format.SampleRate != pcm.SampleRate {
		samples = resample.Stereo(samples, buf.Format.SampleRate)
	}

	return samples, nil
}
