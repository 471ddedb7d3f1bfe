// Package pipeline orchestrates a full pack render: load and validate the
// configuration graph, resolve every track, render each one, and write the
// container files, pack marker and track-list sidecar.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CPColin/msu/internal/decode"
	"github.com/CPColin/msu/internal/msu"
	"github.com/CPColin/msu/internal/msupack"
	"github.com/CPColin/msu/internal/render"
	"github.com/CPColin/msu/internal/resolve"
)

// Options configures a pipeline run.
type Options struct {
	// FFmpegPath overrides the external decoder binary.
	FFmpegPath string

	// DecodeTimeout bounds each external decoder invocation.
	DecodeTimeout time.Duration

	// Parallel renders tracks concurrently. Tracks are independent; the
	// pack cache is only touched during the up-front resolution pass.
	Parallel bool

	// Verbose enables per-track progress logging.
	Verbose bool
}

// Pipeline drives one render run. The pack cache and resolver memo live as
// long as the Pipeline.
type Pipeline struct {
	loader   *msupack.Loader
	resolver *resolve.Resolver
	renderer *render.Renderer
	opts     Options
}

// New creates a pipeline with fresh caches.
func New(opts Options) *Pipeline {
	loader := msupack.NewLoader()
	decoder := &decode.Decoder{
		FFmpegPath: opts.FFmpegPath,
		Timeout:    opts.DecodeTimeout,
	}

	return &Pipeline{
		loader:   loader,
		resolver: resolve.New(loader),
		renderer: &render.Renderer{Decode: decoder.Decode},
		opts:     opts,
	}
}

// RenderPack renders every track of the pack at configPath. Configuration
// errors abort before any output is written; a decode or render failure is
// fatal for its track only, and the remaining tracks still render. The pack
// marker and track list are written only when every track succeeded.
func (p *Pipeline) RenderPack(ctx context.Context, configPath string) error {
	pack, resolved, err := p.resolveAll(configPath)
	if err != nil {
		return err
	}

	prefix := msupack.Relative(pack.Path, pack.OutputPrefix)

	trackErrs := make([]error, len(resolved))
	renderOne := func(i int) {
		res := resolved[i]
		result, err := p.renderer.Track(ctx, res)
		if err == nil {
			err = msu.WriteTrack(msu.TrackPath(prefix, res.Number), result.Samples, result.Loop)
		}
		if err != nil {
			trackErrs[i] = trackError(res, err)
			return
		}
		if p.opts.Verbose {
			log.Printf("Rendered track %d (%s): %d frames, loop at %d", res.Number, res.Key, result.Frames(), result.Loop)
		}
	}

	if p.opts.Parallel {
		g := new(errgroup.Group)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range resolved {
			g.Go(func() error {
				renderOne(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range resolved {
			renderOne(i)
		}
	}

	if err := errors.Join(trackErrs...); err != nil {
		return err
	}

	if err := msu.WriteMarker(prefix); err != nil {
		return err
	}

	return msu.WriteTrackList(prefix, resolved, pack.PackArtist(), pack.PackAlbum())
}

// RenderTrack renders a single track by number. Raw mode writes the
// trimmed, loop-reordered audio as bare PCM with no header, padding, gain
// or fades.
func (p *Pipeline) RenderTrack(ctx context.Context, configPath string, number int, raw bool) error {
	pack, err := p.loader.Load(configPath)
	if err != nil {
		return err
	}

	res, err := p.resolver.ByNumber(pack, number)
	if err != nil {
		return err
	}

	prefix := msupack.Relative(pack.Path, pack.OutputPrefix)

	if raw {
		samples, err := p.renderer.Raw(ctx, res)
		if err != nil {
			return trackError(res, err)
		}
		return msu.WriteRaw(msu.TrackPath(prefix, res.Number)+".raw", samples)
	}

	result, err := p.renderer.Track(ctx, res)
	if err != nil {
		return trackError(res, err)
	}

	return msu.WriteTrack(msu.TrackPath(prefix, res.Number), result.Samples, result.Loop)
}

// resolveAll loads the pack and resolves every track before any rendering
// work, so cross-referential configuration errors surface first.
func (p *Pipeline) resolveAll(configPath string) (*msupack.Pack, []*resolve.Resolved, error) {
	pack, err := p.loader.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	resolved := make([]*resolve.Resolved, len(pack.Tracks))
	for i := range pack.Tracks {
		res, err := p.resolver.Track(pack, &pack.Tracks[i])
		if err != nil {
			return nil, nil, err
		}
		resolved[i] = res
	}

	return pack, resolved, nil
}

// trackError tags an error with the track's number and key for operator
// diagnosis.
func trackError(res *resolve.Resolved, err error) error {
	if res.Key != "" {
		return fmt.Errorf("track %d (%s): %w", res.Number, res.Key, err)
	}

	return fmt.Errorf("track %d: %w", res.Number, err)
}
