package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CPColin/msu/internal/msu"
	"github.com/CPColin/msu/internal/pcm"
	"github.com/CPColin/msu/internal/testutil"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// fixturePack writes a pack with two direct tracks and a mix into dir and
// returns the config path.
func fixturePack(t *testing.T, dir string) string {
	t.Helper()

	testutil.WriteWAV(t, filepath.Join(dir, "title.wav"), testutil.StereoRamp(1000), pcm.SampleRate)
	testutil.WriteWAV(t, filepath.Join(dir, "over.wav"), testutil.StereoConst(400, 2000, 2000), pcm.SampleRate)

	return writeConfig(t, dir, "pack.yaml", `
output_prefix: game
tracks:
  - track_number: 1
    key: title
    title: Title Theme
    file: title.wav
    loop_point: 500
  - track_number: 2
    key: overworld
    file: over.wav
    pad_start: 10
  - track_number: 3
    key: boss
    sub_tracks:
      - file: title.wav
      - file: over.wav
`)
}

func TestRenderPackWritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	config := fixturePack(t, dir)

	p := New(Options{})
	require.NoError(t, p.RenderPack(context.Background(), config))

	prefix := filepath.Join(dir, "game")

	// Track 1: 1000 frames, loop preserved.
	header, err := msu.ReadHeader(msu.TrackPath(prefix, 1))
	require.NoError(t, err)
	assert.Equal(t, 1000, header.Frames)
	assert.Equal(t, 500, header.Loop)

	// Track 2: padded, whole buffer loops from the pad.
	header, err = msu.ReadHeader(msu.TrackPath(prefix, 2))
	require.NoError(t, err)
	assert.Equal(t, 410, header.Frames)
	assert.Equal(t, 10, header.Loop)

	// Track 3: mix sized to the longest sub-track.
	header, err = msu.ReadHeader(msu.TrackPath(prefix, 3))
	require.NoError(t, err)
	assert.Equal(t, 1000, header.Frames)

	// Pack marker and sidecar.
	info, err := os.Stat(prefix + ".msu")
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	list, err := os.ReadFile(msu.TrackListPath(prefix))
	require.NoError(t, err)
	assert.Contains(t, string(list), "Track 1 (title): Title Theme")
	assert.Contains(t, string(list), "Track 3 (boss)")
	assert.Contains(t, string(list), "over.wav")
}

func TestRenderPackParallelMatchesSequential(t *testing.T) {
	seqDir := t.TempDir()
	parDir := t.TempDir()

	seqConfig := fixturePack(t, seqDir)
	parConfig := fixturePack(t, parDir)

	require.NoError(t, New(Options{}).RenderPack(context.Background(), seqConfig))
	require.NoError(t, New(Options{Parallel: true}).RenderPack(context.Background(), parConfig))

	for _, number := range []int{1, 2, 3} {
		seq, err := os.ReadFile(msu.TrackPath(filepath.Join(seqDir, "game"), number))
		require.NoError(t, err)
		par, err := os.ReadFile(msu.TrackPath(filepath.Join(parDir, "game"), number))
		require.NoError(t, err)
		assert.Equal(t, seq, par, "track %d", number)
	}
}

func TestRenderPackConfigErrorAbortsBeforeOutput(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, dir, "pack.yaml", `
output_prefix: game
tracks:
  - track_number: 1
    copy_of: 99
`)

	err := New(Options{}).RenderPack(context.Background(), config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing track 99")

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1, "no output may be written on a config error")
}

func TestRenderPackDecodeFailureSparesSiblings(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "good.wav"), testutil.StereoRamp(100), pcm.SampleRate)

	config := writeConfig(t, dir, "pack.yaml", `
output_prefix: game
tracks:
  - track_number: 1
    key: good
    file: good.wav
  - track_number: 2
    key: broken
    file: gone.flac
`)

	err := New(Options{}).RenderPack(context.Background(), config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track 2 (broken)")

	// The healthy sibling still rendered; the failed one and the pack
	// marker did not.
	prefix := filepath.Join(dir, "game")
	_, err = msu.ReadHeader(msu.TrackPath(prefix, 1))
	assert.NoError(t, err)

	_, statErr := os.Stat(msu.TrackPath(prefix, 2))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(prefix + ".msu")
	assert.True(t, os.IsNotExist(statErr))
}

func TestRenderTrackSingle(t *testing.T) {
	dir := t.TempDir()
	config := fixturePack(t, dir)

	p := New(Options{})
	require.NoError(t, p.RenderTrack(context.Background(), config, 1, false))

	prefix := filepath.Join(dir, "game")
	_, err := msu.ReadHeader(msu.TrackPath(prefix, 1))
	assert.NoError(t, err)

	_, statErr := os.Stat(msu.TrackPath(prefix, 2))
	assert.True(t, os.IsNotExist(statErr), "other tracks stay unrendered")
}

func TestRenderTrackRaw(t *testing.T) {
	dir := t.TempDir()
	config := fixturePack(t, dir)

	p := New(Options{})
	require.NoError(t, p.RenderTrack(context.Background(), config, 2, true))

	data, err := os.ReadFile(msu.TrackPath(filepath.Join(dir, "game"), 2) + ".raw")
	require.NoError(t, err)

	// 400 source frames, no header and no padding.
	assert.Len(t, data, 400*pcm.FrameBytes)
}

func TestRenderTrackUnknownNumber(t *testing.T) {
	dir := t.TempDir()
	config := fixturePack(t, dir)

	err := New(Options{}).RenderTrack(context.Background(), config, 42, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "track 42 not found")
}

func TestRenderPackImportAcrossPacks(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "shared.wav"), testutil.StereoRamp(600), pcm.SampleRate)

	writeConfig(t, dir, "base.yaml", `
output_prefix: base
tracks:
  - track_number: 7
    key: shared
    file: shared.wav
    loop_point: 150
`)
	config := writeConfig(t, dir, "main.yaml", `
output_prefix: main
tracks:
  - track_number: 1
    import_from: base.yaml#7
`)

	require.NoError(t, New(Options{}).RenderPack(context.Background(), config))

	header, err := msu.ReadHeader(msu.TrackPath(filepath.Join(dir, "main"), 1))
	require.NoError(t, err)
	assert.Equal(t, 600, header.Frames)
	assert.Equal(t, 150, header.Loop)
}

func TestRenderPackReportsEveryFailedTrack(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, dir, "pack.yaml", `
output_prefix: game
tracks:
  - track_number: 1
    file: one.flac
  - track_number: 2
    file: two.flac
`)

	err := New(Options{}).RenderPack(context.Background(), config)
	require.Error(t, err)
	for _, number := range []int{1, 2} {
		assert.Contains(t, err.Error(), fmt.Sprintf("track %d", number))
	}
}
