package msu

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/CPColin/msu/internal/resolve"
)

// TrackListPath returns the sidecar filename for a pack prefix.
func TrackListPath(prefix string) string {
	return prefix + "-tracklist.txt"
}

// WriteTrackList writes the human-readable sidecar enumerating every
// rendered track: number, key, title and source description, plus artist
// and album lines only where they differ from the pack-level defaults.
func WriteTrackList(prefix string, tracks []*resolve.Resolved, packArtist, packAlbum string) error {
	sorted := make([]*resolve.Resolved, len(tracks))
	copy(sorted, tracks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var b strings.Builder
	for _, track := range sorted {
		fmt.Fprintf(&b, "Track %d", track.Number)
		if track.Key != "" {
			fmt.Fprintf(&b, " (%s)", track.Key)
		}
		if track.Title != "" {
			fmt.Fprintf(&b, ": %s", track.Title)
		}
		fmt.Fprintf(&b, " <- %s\n", track.SourceDescription())

		if track.Artist != "" && track.Artist != packArtist {
			fmt.Fprintf(&b, "  artist: %s\n", track.Artist)
		}
		if track.Album != "" && track.Album != packAlbum {
			fmt.Fprintf(&b, "  album: %s\n", track.Album)
		}
	}

	return os.WriteFile(TrackListPath(prefix), []byte(b.String()), 0o644)
}
