package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerrors "github.com/docqa/docqa/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_PicksUpSupportedFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "widget.txt", "The widget weighs 2kg.")
	writeFile(t, dir, "guide.md", "# Setup\nPlug it in.")
	writeFile(t, dir, "nested/faq.markdown", "Q: How?\nA: Like this.")
	writeFile(t, dir, "image.png", "\x89PNG")
	writeFile(t, dir, "data.csv", "a,b,c")

	l := New(dir, nil)
	result, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Documents, 3)
	assert.Equal(t, 2, result.FilesSkipped)
	assert.Empty(t, result.Warnings)

	// Sorted by source path
	assert.Equal(t, "guide.md", result.Documents[0].SourcePath)
	assert.Equal(t, filepath.Join("nested", "faq.markdown"), result.Documents[1].SourcePath)
	assert.Equal(t, "widget.txt", result.Documents[2].SourcePath)

	assert.Equal(t, "md", result.Documents[0].Format)
	assert.Equal(t, "The widget weighs 2kg.", result.Documents[2].Content)
}

func TestLoad_MissingDirIsFatal(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "nope"), nil)
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeDocsDirNotFound, qaerrors.GetCode(err))
}

func TestLoad_FileInsteadOfDirIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "file.txt", "x")

	l := New(path, nil)
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeDocsDirNotFound, qaerrors.GetCode(err))
}

func TestLoad_BrokenPDFIsWarningNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.txt", "fine")
	writeFile(t, dir, "broken.pdf", "not a real pdf")

	l := New(dir, nil)
	result, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, "ok.txt", result.Documents[0].SourcePath)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Path, "broken.pdf")
	assert.Equal(t, qaerrors.ErrCodeFileUnreadable, qaerrors.GetCode(result.Warnings[0].Err))
}

func TestLoad_SkipsHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.txt", "seen")
	writeFile(t, dir, ".hidden.txt", "unseen")
	writeFile(t, dir, ".docqa/records.txt", "store internals")

	l := New(dir, nil)
	result, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, "visible.txt", result.Documents[0].SourcePath)
}

func TestLoad_EmptyDirYieldsNoDocuments(t *testing.T) {
	l := New(t.TempDir(), nil)
	result, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.Warnings)
}

func TestDocumentID_Deterministic(t *testing.T) {
	a := DocumentID("docs/widget.txt")
	b := DocumentID("docs/widget.txt")
	c := DocumentID("docs/other.txt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "doc_")
}

func TestSupportedExtensions(t *testing.T) {
	l := New(t.TempDir(), nil)
	assert.Equal(t, []string{"markdown", "md", "pdf", "txt"}, l.SupportedExtensions())
}
