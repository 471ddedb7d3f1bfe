// Package render turns resolved track attributes and raw decoded PCM into
// the final sample buffer and adjusted loop point. Every stage is a pure
// transform producing a new buffer: trimming and loop-point-relative
// reordering, sub-track mixing, gain and fade application, and padding.
package render

import (
	"context"
	"fmt"

	"github.com/CPColin/msu/internal/pcm"
	"github.com/CPColin/msu/internal/resolve"
)

// Result is one rendered track: the full padded buffer and the loop point
// as a frame index into it.
type Result struct {
	Samples []int16
	Loop    int
}

// Frames returns the frame count of the rendered buffer.
func (r *Result) Frames() int {
	return pcm.Frames(r.Samples)
}

// Renderer renders resolved tracks, pulling raw PCM through the Decode
// collaborator. Renderers hold no state and are safe for concurrent use as
// long as Decode is.
type Renderer struct {
	Decode func(ctx context.Context, path string) ([]int16, error)
}

// Track renders a resolved track to completion: source audio (decoded or
// mixed from sub-tracks), trim and loop reordering, gain and fades, padding.
func (r *Renderer) Track(ctx context.Context, res *resolve.Resolved) (*Result, error) {
	source, err := r.source(ctx, res)
	if err != nil {
		return nil, err
	}

	trimmed, loop, err := TrimLoop(source, res.TrimStart, res.TrimEnd, res.LoopPoint)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", res.Number, err)
	}

	factor := GainFactor(res, pcm.RMS(trimmed))
	shaped := Apply(trimmed, factor, res.FadeIn, res.FadeOut)

	return &Result{
		Samples: Pad(shaped, res.PadStart, res.PadEnd),
		Loop:    loop + res.PadStart,
	}, nil
}

// Raw renders only the trimmed, loop-reordered source audio, with no gain,
// fades or padding. This is the buffer raw output mode writes for loop
// point inspection in an external editor.
func (r *Renderer) Raw(ctx context.Context, res *resolve.Resolved) ([]int16, error) {
	source, err := r.source(ctx, res)
	if err != nil {
		return nil, err
	}

	trimmed, _, err := TrimLoop(source, res.TrimStart, res.TrimEnd, res.LoopPoint)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", res.Number, err)
	}

	return trimmed, nil
}

// source produces the raw audio a track's own pipeline operates on: decoded
// file PCM for a direct-like track, or the sum of fully rendered sub-tracks
// for a mix.
func (r *Renderer) source(ctx context.Context, res *resolve.Resolved) ([]int16, error) {
	if !res.IsMix() {
		return r.Decode(ctx, res.File)
	}

	buffers := make([][]int16, len(res.Sub))
	for i, sub := range res.Sub {
		rendered, err := r.Track(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("track %d sub-track %d: %w", res.Number, i, err)
		}
		buffers[i] = rendered.Samples
	}

	return Mix(buffers), nil
}

// TrimLoop applies the trim bounds and relocates the loop point. All
// indices are frames into the raw pre-trim audio.
//
// Without a loop point the whole trimmed clip loops, from frame 0. A loop
// point at or past trimStart shifts by the trim. A loop point before
// trimStart means the audible start lies after the section playback should
// loop back to, so the pre-loop section [loopPoint, trimStart) is flipped to
// the end of the buffer and the whole result loops from frame 0.
func TrimLoop(samples []int16, trimStart int, trimEnd, loopPoint *int) ([]int16, int, error) {
	total := pcm.Frames(samples)

	end := total
	if trimEnd != nil && *trimEnd < total {
		end = *trimEnd
	}
	if trimStart > end {
		return nil, 0, fmt.Errorf("trim start %d past end of audio (%d frames)", trimStart, end)
	}

	clip := func(from, to int) []int16 {
		return samples[from*pcm.Channels : to*pcm.Channels]
	}

	switch {
	case loopPoint == nil:
		return clip(trimStart, end), 0, nil

	case *loopPoint >= trimStart:
		return clip(trimStart, end), *loopPoint - trimStart, nil

	default:
		out := make([]int16, 0, (end-*loopPoint)*pcm.Channels)
		out = append(out, clip(trimStart, end)...)
		out = append(out, clip(*loopPoint, trimStart)...)
		return out, 0, nil
	}
}

// Mix sums sample buffers into an output sized to the longest input.
// Shorter buffers contribute silence past their end. Sums are taken in
// wider integers and saturated on the final 16-bit narrowing.
func Mix(buffers [][]int16) []int16 {
	longest := 0
	for _, buf := range buffers {
		if len(buf) > longest {
			longest = len(buf)
		}
	}

	out := make([]int16, longest)
	for i := range out {
		sum := 0
		for _, buf := range buffers {
			if i < len(buf) {
				sum += int(buf[i])
			}
		}
		out[i] = pcm.Clamp(float64(sum))
	}

	return out
}

// Pad surrounds a buffer with padStart and padEnd frames of silence.
func Pad(samples []int16, padStart, padEnd int) []int16 {
	if padStart == 0 && padEnd == 0 {
		return samples
	}

	out := make([]int16, (padStart+pcm.Frames(samples)+padEnd)*pcm.Channels)
	copy(out[padStart*pcm.Channels:], samples)

	return out
}
