package collection

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates directories (trailing slash) and files under root
func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if strings.HasSuffix(p, "/") {
			require.NoError(t, os.MkdirAll(full, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	}
}

func TestScanRootEmpty(t *testing.T) {
	delta, err := scanRoot(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, delta.Bands)
	assert.Empty(t, delta.Removed)
	assert.Empty(t, delta.Errors)
}

func TestScanRootMissing(t *testing.T) {
	_, err := scanRoot(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
	assert.Equal(t, KindIO, AsFailure(err).Kind)
}

func TestScanRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"Pink Floyd/1973 - The Dark Side of the Moon/01 - Speak to Me.mp3",
		"Pink Floyd/1973 - The Dark Side of the Moon/02 - Breathe.mp3",
		"Pink Floyd/1979 - The Wall (Deluxe Edition)/01 - In the Flesh.flac",
		"Pink Floyd/cover.jpg",
		"Queens of the Stone Age/Albums/2002 - Songs for the Deaf/01 - You Think I Aint Worth a Dollar.mp3",
		"Queens of the Stone Age/Live/2005 - Over the Years and Through the Woods/01 - Intro.mp3",
		// an empty directory is no album
		"Pink Floyd/artwork/",
		// hidden directories are skipped
		".sync/whatever.mp3",
	)

	delta, err := scanRoot(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, delta.Bands, 2)

	pf := delta.Bands[0]
	assert.Equal(t, "Pink Floyd", pf.Name)
	require.Len(t, pf.Albums, 2)
	assert.Equal(t, "The Dark Side of the Moon", pf.Albums[0].Name)
	assert.Equal(t, "1973", pf.Albums[0].Year)
	assert.Equal(t, 2, pf.Albums[0].TrackCount)
	assert.Equal(t, "The Wall", pf.Albums[1].Name)
	assert.Equal(t, "Deluxe Edition", pf.Albums[1].Edition)
	assert.Equal(t, StructureDefault, pf.Structure)

	qotsa := delta.Bands[1]
	assert.Equal(t, "Queens of the Stone Age", qotsa.Name)
	require.Len(t, qotsa.Albums, 2)
	assert.Equal(t, StructureTyped, qotsa.Structure)
	assert.Equal(t, TypeAlbum, qotsa.Albums[0].Type)
	assert.Equal(t, "Albums/2002 - Songs for the Deaf", qotsa.Albums[0].FolderPath)
	assert.Equal(t, TypeLive, qotsa.Albums[1].Type)
}

func TestScanRootDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"A/1970 - One/t.mp3",
		"B/1971 - Two/t.mp3",
		"C/1972 - Three/t.mp3",
	)

	first, err := scanRoot(context.Background(), root, nil)
	require.NoError(t, err)
	second, err := scanRoot(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Bands, second.Bands)
}

func TestScanRootRemoved(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "A/1970 - One/t.mp3")

	prev := &CollectionIndex{Bands: []BandSummary{{Name: "A"}, {Name: "Gone"}}}

	delta, err := scanRoot(context.Background(), root, prev)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gone"}, delta.Removed)
}

func TestScanRootCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "A/1970 - One/t.mp3")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scanRoot(ctx, root, nil)
	require.Error(t, err)
	assert.Equal(t, KindCancelled, AsFailure(err).Kind)
}

func TestScanBandMixedStructure(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"X/Albums/1970 - One/t.mp3",
		"X/Albums/1971 - Two/t.mp3",
		"X/Albums/1972 - Three/t.mp3",
		"X/1973 - Stray/t.mp3",
	)

	bd, _, err := scanBand(root, "X")
	require.NoError(t, err)
	assert.Equal(t, StructureMixed, bd.Structure)
	assert.Equal(t, 75.0, bd.Compliance)
}
