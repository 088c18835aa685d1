package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedExt(t *testing.T) {
	assert.True(t, SupportedExt("case.pdf"))
	assert.True(t, SupportedExt("CASE.PDF"))
	assert.True(t, SupportedExt("notes.txt"))
	assert.False(t, SupportedExt("image.png"))
	assert.False(t, SupportedExt("doc.docx"))
}

func TestExtractBytes_PlainText(t *testing.T) {
	doc, err := ExtractBytes("summary.txt", []byte("a custody ruling"))
	require.NoError(t, err)
	assert.Equal(t, "summary.txt", doc.Filename)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Page)
	assert.Equal(t, "a custody ruling", doc.Pages[0].Text)
}

func TestExtractBytes_Empty(t *testing.T) {
	_, err := ExtractBytes("empty.txt", nil)
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractBytes_BlankText(t *testing.T) {
	_, err := ExtractBytes("blank.txt", []byte("   \n\t  "))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractBytes_UnsupportedFormat(t *testing.T) {
	_, err := ExtractBytes("sheet.xlsx", []byte("data"))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractBytes_MalformedPDF(t *testing.T) {
	_, err := ExtractBytes("broken.pdf", []byte("%PDF-1.4 but truncated"))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hearing scheduled"), 0o644))

	doc, err := ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "note.txt", doc.Filename)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, "hearing scheduled", doc.Pages[0].Text)
}

func TestExtractFile_Missing(t *testing.T) {
	_, err := ExtractFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreadableDocument)
}
