package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
}

func TestWalker_IncludesAndExcludes(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "nested", "a.pdf"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "drafts", "old.pdf"))

	w := NewWalker([]string{"**/*.pdf"}, []string{"drafts/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
		assert.Positive(t, f.Size)
	}
	assert.Equal(t, []string{"b.pdf", "nested/a.pdf"}, rel)
}

func TestWalker_DefaultIncludesPDF(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "paper.pdf"))
	touch(t, filepath.Join(root, "readme.md"))

	files, err := NewWalker(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "paper.pdf", filepath.Base(files[0].Path))
}

func TestWalker_MissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
