package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/domain"
)

type fakePages struct {
	pages []string
	errs  map[int]error
}

func (f fakePages) NumPage() int { return len(f.pages) }

func (f fakePages) PageText(n int) (string, error) {
	if err := f.errs[n]; err != nil {
		return "", err
	}
	return f.pages[n-1], nil
}

func TestExtractPagesSkipsEmptyPages(t *testing.T) {
	e := NewPDFExtractor(nil)
	src := fakePages{pages: []string{"Abstract", "", "Introduction", "", "Conclusion"}}

	text, err := e.extractPages(src, "paper.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Abstract\nIntroduction\nConclusion\n", text)
	segments := strings.SplitAfter(text, "\n")
	// SplitAfter leaves a trailing empty element after the last newline
	assert.Len(t, segments[:len(segments)-1], 3)
}

func TestExtractPagesKeepsPageOrder(t *testing.T) {
	e := NewPDFExtractor(nil)
	src := fakePages{pages: []string{"one", "two", "three"}}

	text, err := e.extractPages(src, "paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", text)
}

func TestExtractPagesSkipsUnreadablePage(t *testing.T) {
	e := NewPDFExtractor(nil)
	src := fakePages{
		pages: []string{"first", "broken", "third"},
		errs:  map[int]error{2: errors.New("bad font")},
	}

	text, err := e.extractPages(src, "paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "first\nthird\n", text)
}

func TestExtractPagesNoText(t *testing.T) {
	e := NewPDFExtractor(nil)
	text, err := e.extractPages(fakePages{pages: []string{"", ""}}, "scan.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtractMissingFile(t *testing.T) {
	e := NewPDFExtractor(nil)
	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestExtractNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0644))

	e := NewPDFExtractor(nil)
	_, err := e.Extract(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestExtractFixturePDF(t *testing.T) {
	e := NewPDFExtractor(nil)
	text, err := e.Extract(filepath.Join("testdata", "paper.pdf"))
	require.NoError(t, err)

	first := strings.Index(text, "Attention Is All You Need")
	second := strings.Index(text, "self-attention")
	require.GreaterOrEqual(t, first, 0, "page 1 text missing from %q", text)
	require.GreaterOrEqual(t, second, 0, "page 2 text missing from %q", text)
	assert.Less(t, first, second)
	assert.True(t, strings.HasSuffix(text, "\n"))
}
