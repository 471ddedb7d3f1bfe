// Package msupack defines the in-memory configuration graph for an MSU-1
// music pack: the pack-level defaults, the four track variants, and the
// loader that reads pack files and caches them by filename so cross-pack
// imports parse each file once per pipeline run.
package msupack

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrConfig is wrapped by every configuration error: missing required
// fields, ambiguous track variants, duplicate or unresolved track numbers,
// and cyclic delegation chains.
var ErrConfig = errors.New("invalid pack configuration")

// Kind discriminates the track variants.
type Kind int

const (
	// KindDirect references a raw source file.
	KindDirect Kind = iota

	// KindCopy delegates to another track in the same pack.
	KindCopy

	// KindImport delegates to a track in another pack file.
	KindImport

	// KindMix sums a list of sub-tracks.
	KindMix
)

// String returns the variant name used in error messages and the sidecar.
func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindCopy:
		return "copy"
	case KindImport:
		return "import"
	case KindMix:
		return "mix"
	default:
		return "unknown"
	}
}

// Pack is one music replacement set: global defaults plus its tracks.
// A pack's lifetime is one pipeline run.
type Pack struct {
	OutputPrefix  string   `yaml:"output_prefix"`
	Amplification *float64 `yaml:"amplification"`
	RMSTarget     *float64 `yaml:"rms_target"`
	Artist        string   `yaml:"artist"`
	Album         string   `yaml:"album"`
	ChildOf       string   `yaml:"child_of"`
	Tracks        []Track  `yaml:"tracks"`

	// Path is the file the pack was loaded from, cleaned. It keys the
	// loader cache and the resolver memo.
	Path string `yaml:"-"`

	// Parent is the pack named by ChildOf, loaded eagerly by the Loader.
	Parent *Pack `yaml:"-"`
}

// Track is the tagged union of the four variants. The discriminant is
// implicit in which fields are present: File for a direct track, CopyOf for
// a same-pack copy, ImportFrom for a cross-pack import, SubTracks for a mix.
// Optional scalars are pointers so absent and zero stay distinct.
type Track struct {
	Number int `yaml:"track_number"`

	File       string  `yaml:"file"`
	CopyOf     *int    `yaml:"copy_of"`
	ImportFrom string  `yaml:"import_from"`
	SubTracks  []Track `yaml:"sub_tracks"`

	LoopPoint *int `yaml:"loop_point"`
	TrimStart int  `yaml:"trim_start"`
	TrimEnd   *int `yaml:"trim_end"`
	PadStart  int  `yaml:"pad_start"`
	PadEnd    int  `yaml:"pad_end"`
	FadeIn    int  `yaml:"fade_in"`
	FadeOut   int  `yaml:"fade_out"`

	Amplification *float64 `yaml:"amplification"`
	RMSTarget     *float64 `yaml:"rms_target"`

	Title  string `yaml:"title"`
	Key    string `yaml:"key"`
	Artist string `yaml:"artist"`
	Album  string `yaml:"album"`
}

// Kind returns the variant discriminant. Validate guarantees exactly one
// discriminating field is set on every loaded track.
func (t *Track) Kind() Kind {
	switch {
	case t.CopyOf != nil:
		return KindCopy
	case t.ImportFrom != "":
		return KindImport
	case len(t.SubTracks) > 0:
		return KindMix
	default:
		return KindDirect
	}
}

// Lookup finds a track by number, walking the child-of chain when the
// number is not defined locally. Returns the owning pack alongside the
// track so pack-scoped defaults resolve against the right pack.
func (p *Pack) Lookup(number int) (*Pack, *Track, bool) {
	for pack := p; pack != nil; pack = pack.Parent {
		for i := range pack.Tracks {
			if pack.Tracks[i].Number == number {
				return pack, &pack.Tracks[i], true
			}
		}
	}

	return nil, nil, false
}

// PackAmplification returns the pack-level amplification, falling back
// through the child-of chain.
func (p *Pack) PackAmplification() *float64 {
	for pack := p; pack != nil; pack = pack.Parent {
		if pack.Amplification != nil {
			return pack.Amplification
		}
	}

	return nil
}

// PackRMSTarget returns the pack-level RMS target, falling back through the
// child-of chain.
func (p *Pack) PackRMSTarget() *float64 {
	for pack := p; pack != nil; pack = pack.Parent {
		if pack.RMSTarget != nil {
			return pack.RMSTarget
		}
	}

	return nil
}

// PackArtist returns the pack-level artist, falling back through the
// child-of chain.
func (p *Pack) PackArtist() string {
	for pack := p; pack != nil; pack = pack.Parent {
		if pack.Artist != "" {
			return pack.Artist
		}
	}

	return ""
}

// PackAlbum returns the pack-level album, falling back through the
// child-of chain.
func (p *Pack) PackAlbum() string {
	for pack := p; pack != nil; pack = pack.Parent {
		if pack.Album != "" {
			return pack.Album
		}
	}

	return ""
}

// Validate checks the cross-referential invariants that do not require
// loading other packs: a usable output prefix, unique track numbers, exactly
// one variant discriminant per track, and sane frame ranges.
func (p *Pack) Validate() error {
	if p.OutputPrefix == "" {
		return fmt.Errorf("%w: output_prefix is required", ErrConfig)
	}

	seen := make(map[int]bool, len(p.Tracks))
	for i := range p.Tracks {
		t := &p.Tracks[i]
		if seen[t.Number] {
			return fmt.Errorf("%w: duplicate track number %d", ErrConfig, t.Number)
		}
		seen[t.Number] = true

		if err := t.validate(); err != nil {
			return fmt.Errorf("track %d: %w", t.Number, err)
		}
	}

	return nil
}

func (t *Track) validate() error {
	discriminants := 0
	if t.File != "" {
		discriminants++
	}
	if t.CopyOf != nil {
		discriminants++
	}
	if t.ImportFrom != "" {
		discriminants++
	}
	if len(t.SubTracks) > 0 {
		discriminants++
	}

	switch {
	case discriminants == 0:
		return fmt.Errorf("%w: needs one of file, copy_of, import_from or sub_tracks", ErrConfig)
	case discriminants > 1:
		return fmt.Errorf("%w: more than one of file, copy_of, import_from and sub_tracks set", ErrConfig)
	}

	if t.ImportFrom != "" {
		if _, _, err := ParseImportRef(t.ImportFrom); err != nil {
			return err
		}
	}

	if t.TrimStart < 0 {
		return fmt.Errorf("%w: trim_start must not be negative", ErrConfig)
	}
	if t.TrimEnd != nil && *t.TrimEnd < t.TrimStart {
		return fmt.Errorf("%w: trim_end %d before trim_start %d", ErrConfig, *t.TrimEnd, t.TrimStart)
	}
	if t.LoopPoint != nil && *t.LoopPoint < 0 {
		return fmt.Errorf("%w: loop_point must not be negative", ErrConfig)
	}
	if t.PadStart < 0 || t.PadEnd < 0 || t.FadeIn < 0 || t.FadeOut < 0 {
		return fmt.Errorf("%w: pad and fade lengths must not be negative", ErrConfig)
	}

	for i := range t.SubTracks {
		if err := t.SubTracks[i].validate(); err != nil {
			return fmt.Errorf("sub-track %d: %w", i, err)
		}
	}

	return nil
}

// ParseImportRef splits an import_from reference of the form
// "filename#trackNumber".
func ParseImportRef(ref string) (file string, number int, err error) {
	idx := strings.LastIndex(ref, "#")
	if idx <= 0 || idx == len(ref)-1 {
		return "", 0, fmt.Errorf("%w: import_from %q is not filename#track", ErrConfig, ref)
	}

	number, err = strconv.Atoi(ref[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: import_from %q has a bad track number", ErrConfig, ref)
	}

	return ref[:idx], number, nil
}
