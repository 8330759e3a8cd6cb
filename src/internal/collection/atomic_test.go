package collection

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	data := []byte(`{"a":1}`)

	checksum, err := writeFileAtomic(path, data)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), checksum)

	// no temp file left behind
	_, err = os.Stat(path + tmpSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	_, err := writeFileAtomic(path, []byte("old"))
	require.NoError(t, err)
	_, err = writeFileAtomic(path, []byte("new"))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestWriteFileAtomicLeavesTargetOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json")

	// the parent directory does not exist, the write must fail without
	// creating anything
	_, err := writeFileAtomic(path, []byte("data"))
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomicIgnoresStaleTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	// a stale temp file from an interrupted earlier write must not disturb
	// the next one
	require.NoError(t, os.WriteFile(path+tmpSuffix, []byte("stale"), 0644))

	_, err := writeFileAtomic(path, []byte("fresh"))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestMarshalStable(t *testing.T) {
	b := &Band{Name: "Pink Floyd", Genres: []string{"Progressive Rock"}}

	first, err := marshalStable(b)
	require.NoError(t, err)
	second, err := marshalStable(b)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, byte('\n'), first[len(first)-1])
}
