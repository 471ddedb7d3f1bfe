package decode

import (
	"errors"
	"fmt"
	"io"

	goflac "github.com/mewkiz/flac"

	"github.com/CPColin/msu/internal/pcm"
	"github.com/CPColin/msu/internal/resample"
)

// decodeFLAC reads a FLAC file in-process, frame by frame, and normalizes
// it to the container format.
func decodeFLAC(path string) ([]int16, error) {
	stream, err := goflac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening FLAC stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	info := stream.Info
	channels := int(info.NChannels)
	if channels > pcm.Channels {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	bitDepth := int(info.BitsPerSample)

	samples := make([]int16, 0, int(info.NSamples)*channels)

	for {
		audioFrame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading FLAC frame: %w", err)
		}

		blockSize := int(audioFrame.BlockSize)
		for i := range blockSize {
			for ch := range channels {
				raw := int(audioFrame.Subframes[ch].Samples[i])
				samples = append(samples, scaleToInt16(raw, bitDepth))
			}
		}
	}

	samples, err = toStereo(samples, channels)
	if err != nil {
		return nil, err
	}

	if int(info.SampleRate) != pcm.SampleRate {
		samples = resample.Stereo(samples, int(info.SampleRate))
	}

	return samples, nil
}
