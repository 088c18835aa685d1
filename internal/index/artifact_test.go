package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest(passages []Passage) Manifest {
	dimension := 0
	if len(passages) > 0 {
		dimension = len(passages[0].Vector)
	}
	return Manifest{
		FormatVersion:  FormatVersion,
		EmbeddingModel: "test-embed",
		Dimension:      dimension,
		PassageCount:   len(passages),
		BuiltAt:        time.Now().UTC(),
	}
}

func TestWriteLoad_Roundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	passages := []Passage{
		{ID: 0, Filename: "a.pdf", Page: 1, Text: "first", Vector: []float32{1, 0}},
		{ID: 1, Filename: "a.pdf", Page: 2, Text: "second", Vector: []float32{0, 1}},
	}

	require.NoError(t, Write(dir, testManifest(passages), passages))

	ix, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())
	assert.Equal(t, "test-embed", ix.Manifest().EmbeddingModel)
	assert.Equal(t, 2, ix.Manifest().Dimension)

	hits := ix.Search([]float32{1, 0}, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "first", hits[0].Passage.Text)
}

func TestWriteLoad_EmptyArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, Write(dir, testManifest(nil), nil))

	ix, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Nil(t, ix.Search([]float32{1, 0}, 3))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent"))
	assert.ErrorIs(t, err, ErrIndexMissing)
}

func TestLoad_CorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestFile), []byte("{not json"), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestLoad_UnsupportedFormatVersion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	manifest := testManifest(nil)
	manifest.FormatVersion = FormatVersion + 1
	require.NoError(t, Write(dir, manifest, nil))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestLoad_PassageCountMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	passages := []Passage{{ID: 0, Vector: []float32{1}}}
	manifest := testManifest(passages)
	manifest.PassageCount = 5
	require.NoError(t, Write(dir, manifest, passages))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestLoad_DuplicatePassageID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	passages := []Passage{
		{ID: 3, Vector: []float32{1}},
		{ID: 3, Vector: []float32{0}},
	}
	require.NoError(t, Write(dir, testManifest(passages), passages))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestLoad_DimensionMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")
	passages := []Passage{
		{ID: 0, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{1}},
	}
	require.NoError(t, Write(dir, testManifest(passages), passages))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrIndexCorrupt)
}

func TestWrite_ReplacesPriorArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")

	first := []Passage{{ID: 0, Filename: "old.pdf", Page: 1, Text: "old", Vector: []float32{1}}}
	require.NoError(t, Write(dir, testManifest(first), first))

	second := []Passage{
		{ID: 0, Filename: "new.pdf", Page: 1, Text: "new", Vector: []float32{1}},
		{ID: 1, Filename: "new.pdf", Page: 2, Text: "newer", Vector: []float32{0}},
	}
	require.NoError(t, Write(dir, testManifest(second), second))

	ix, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, ix.Len())

	// The moved-aside prior artifact must not linger.
	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuildLock_Exclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "index")

	lock, err := AcquireBuildLock(dir)
	require.NoError(t, err)

	_, err = AcquireBuildLock(dir)
	assert.ErrorIs(t, err, ErrBuildInProgress)

	require.NoError(t, lock.Release())

	lock2, err := AcquireBuildLock(dir)
	require.NoError(t, err)
	require.NoError(t, lock2.Release())
}
