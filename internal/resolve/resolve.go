// Package resolve turns track variants into flat, concrete attribute
// records. Resolution is an eager pass: the delegation chain behind a copy
// or import is walked once, the first defined value wins per attribute, and
// the result is memoized, so nothing re-derives values through the chain on
// every access and cycles surface structurally.
package resolve

import (
	"fmt"
	"strings"

	"github.com/CPColin/msu/internal/msupack"
)

// Resolved is the flat attribute record for one track, with every
// delegation already followed. Frame-valued attributes index the raw,
// pre-trim decoded audio, exactly as configured.
type Resolved struct {
	Number int
	Key    string
	Title  string
	Artist string
	Album  string

	LoopPoint *int
	TrimStart int
	TrimEnd   *int
	PadStart  int
	PadEnd    int
	FadeIn    int
	FadeOut   int

	// Track-level gain attributes, resolved along the delegation chain.
	Amplification *float64
	RMSTarget     *float64

	// Pack-level gain fallbacks: the owning pack's value first, then each
	// delegated-to pack's, per the pack-scoped resolution order. Always nil
	// on a mix's sub-track records, so pack gain scales the mixed output
	// exactly once rather than compounding per layer.
	PackAmplification *float64
	PackRMSTarget     *float64

	// Exactly one of File and Sub is set. File is the decoded source path
	// for a direct track (or whatever a copy/import chain terminates in);
	// Sub holds the resolved sub-tracks of a mix.
	File string
	Sub  []*Resolved
}

// IsMix reports whether the track renders by summing sub-tracks.
func (r *Resolved) IsMix() bool {
	return len(r.Sub) > 0
}

// SourceDescription describes the audio source for the track-list sidecar:
// the file path for a direct-like track, or the comma-joined recursive
// descriptions of a mix's sub-tracks.
func (r *Resolved) SourceDescription() string {
	if !r.IsMix() {
		return r.File
	}

	parts := make([]string, len(r.Sub))
	for i, sub := range r.Sub {
		parts[i] = sub.SourceDescription()
	}

	return strings.Join(parts, ", ")
}

// Resolver resolves tracks against a shared pack loader, memoizing per
// (pack file, track number).
type Resolver struct {
	loader *msupack.Loader
	memo   map[string]*Resolved
}

// New creates a resolver over the given loader. The loader supplies the
// packs that imports refer to; its cache and the resolver's memo share one
// pipeline run's lifetime.
func New(loader *msupack.Loader) *Resolver {
	return &Resolver{
		loader: loader,
		memo:   make(map[string]*Resolved),
	}
}

// ByNumber resolves the numbered track of a pack, searching the pack's
// child-of chain. Results are memoized.
func (r *Resolver) ByNumber(pack *msupack.Pack, number int) (*Resolved, error) {
	return r.byNumber(pack, number, nil)
}

// Track resolves a track variant in the context of its owning pack.
// Results are memoized under the same pack-and-number key ByNumber uses.
func (r *Resolver) Track(pack *msupack.Pack, track *msupack.Track) (*Resolved, error) {
	key := fmt.Sprintf("%s#%d", pack.Path, track.Number)
	if res, ok := r.memo[key]; ok {
		return res, nil
	}

	res, err := r.resolve(pack, track, nil)
	if err != nil {
		return nil, err
	}

	r.memo[key] = res

	return res, nil
}

func (r *Resolver) byNumber(pack *msupack.Pack, number int, visiting []string) (*Resolved, error) {
	key := fmt.Sprintf("%s#%d", pack.Path, number)
	if res, ok := r.memo[key]; ok {
		return res, nil
	}

	owner, track, ok := pack.Lookup(number)
	if !ok {
		return nil, fmt.Errorf("%w: track %d not found in %s", msupack.ErrConfig, number, pack.Path)
	}

	res, err := r.resolve(owner, track, visiting)
	if err != nil {
		return nil, err
	}

	r.memo[key] = res

	return res, nil
}

// link is one step of a delegation chain: a track and the pack that owns it.
type link struct {
	pack  *msupack.Pack
	track *msupack.Track
}

func (l link) label() string {
	return fmt.Sprintf("%s#%d", l.pack.Path, l.track.Number)
}

// resolve walks the delegation chain from the given track until it reaches
// a direct or mix track, then folds the chain into a flat record.
func (r *Resolver) resolve(pack *msupack.Pack, track *msupack.Track, visiting []string) (*Resolved, error) {
	chain := []link{{pack, track}}

	for {
		cur := chain[len(chain)-1]

		for _, label := range visiting {
			if label == cur.label() {
				cycle := append(append([]string{}, visiting...), cur.label())
				return nil, fmt.Errorf("%w: delegation cycle %s", msupack.ErrConfig, strings.Join(cycle, " -> "))
			}
		}
		visiting = append(visiting, cur.label())

		switch cur.track.Kind() {
		case msupack.KindCopy:
			owner, target, ok := cur.pack.Lookup(*cur.track.CopyOf)
			if !ok {
				return nil, fmt.Errorf("%w: track %d copies missing track %d in %s",
					msupack.ErrConfig, cur.track.Number, *cur.track.CopyOf, cur.pack.Path)
			}
			chain = append(chain, link{owner, target})

		case msupack.KindImport:
			file, number, err := msupack.ParseImportRef(cur.track.ImportFrom)
			if err != nil {
				return nil, err
			}
			imported, err := r.loader.Load(msupack.Relative(cur.pack.Path, file))
			if err != nil {
				return nil, fmt.Errorf("track %d: %w", cur.track.Number, err)
			}
			owner, target, ok := imported.Lookup(number)
			if !ok {
				return nil, fmt.Errorf("%w: track %d imports missing track %d from %s",
					msupack.ErrConfig, cur.track.Number, number, imported.Path)
			}
			chain = append(chain, link{owner, target})

		default:
			return r.fold(chain, visiting)
		}
	}
}

// fold flattens a delegation chain ending in a direct or mix track into one
// record: first defined value wins along the track chain, then pack-level
// fallbacks apply in chain order for the pack-scoped attributes.
func (r *Resolver) fold(chain []link, visiting []string) (*Resolved, error) {
	terminal := chain[len(chain)-1]

	res := &Resolved{Number: chain[0].track.Number}

	for _, l := range chain {
		t := l.track
		if res.Key == "" {
			res.Key = t.Key
		}
		if res.Title == "" {
			res.Title = t.Title
		}
		if res.Artist == "" {
			res.Artist = t.Artist
		}
		if res.Album == "" {
			res.Album = t.Album
		}
		if res.LoopPoint == nil {
			res.LoopPoint = t.LoopPoint
		}
		if res.TrimStart == 0 {
			res.TrimStart = t.TrimStart
		}
		if res.TrimEnd == nil {
			res.TrimEnd = t.TrimEnd
		}
		if res.PadStart == 0 {
			res.PadStart = t.PadStart
		}
		if res.PadEnd == 0 {
			res.PadEnd = t.PadEnd
		}
		if res.FadeIn == 0 {
			res.FadeIn = t.FadeIn
		}
		if res.FadeOut == 0 {
			res.FadeOut = t.FadeOut
		}
		if res.Amplification == nil {
			res.Amplification = t.Amplification
		}
		if res.RMSTarget == nil {
			res.RMSTarget = t.RMSTarget
		}
	}

	// Pack-scoped fallbacks: the owning pack outranks delegated-to packs,
	// but never a value defined on a track.
	for _, l := range chain {
		if res.Artist == "" {
			res.Artist = l.pack.PackArtist()
		}
		if res.Album == "" {
			res.Album = l.pack.PackAlbum()
		}
		if res.PackAmplification == nil {
			res.PackAmplification = l.pack.PackAmplification()
		}
		if res.PackRMSTarget == nil {
			res.PackRMSTarget = l.pack.PackRMSTarget()
		}
	}

	if terminal.track.Kind() == msupack.KindMix {
		res.Sub = make([]*Resolved, len(terminal.track.SubTracks))
		for i := range terminal.track.SubTracks {
			sub, err := r.resolve(terminal.pack, &terminal.track.SubTracks[i], visiting)
			if err != nil {
				return nil, fmt.Errorf("track %d sub-track %d: %w", res.Number, i, err)
			}
			// Pack-level gain applies once, to the mixed output. Sub-tracks
			// keep only their own explicit gain settings.
			sub.PackAmplification = nil
			sub.PackRMSTarget = nil
			res.Sub[i] = sub
		}
	} else {
		res.File = msupack.Relative(terminal.pack.Path, terminal.track.File)
	}

	return res, nil
}
