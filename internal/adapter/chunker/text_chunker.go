package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"paperchat/internal/domain"
)

// Break candidates in order of preference. A chunk ends right after the
// latest separator of the first tier that occurs inside the search window.
var separatorTiers = [][]string{
	{"\n\n"},
	{"\n", ". ", "! ", "? "},
	{" ", "\t"},
}

// TextChunker splits text into overlapping windows of at most maxChars runes.
type TextChunker struct {
	maxChars int
	overlap  int
}

func NewTextChunker(maxChars, overlap int) (*TextChunker, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, maxChars)
	}
	if overlap < 0 || overlap >= maxChars {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, maxChars, overlap)
	}
	return &TextChunker{
		maxChars: maxChars,
		overlap:  overlap,
	}, nil
}

func (c *TextChunker) Chunk(paper domain.Paper, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	filename := filepath.Base(paper.SourcePath)

	var chunks []domain.Chunk
	start := 0
	for {
		end := start + c.maxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:               generateChunkID(paper.ID, start, end),
			PaperID:          paper.ID,
			Filename:         filename,
			OriginalFilename: paper.OriginalFilename,
			SourcePath:       paper.SourcePath,
			Index:            index,
			Start:            start,
			End:              end,
			Text:             string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
		start = c.nextStart(runes, start, end)
	}

	return chunks, nil
}

// breakPoint picks where a full-size window starting at start should end.
// Only positions past the midpoint (and past the overlap) are considered so
// that the next window still advances.
func (c *TextChunker) breakPoint(runes []rune, start, end int) int {
	minLen := c.maxChars / 2
	if minLen < c.overlap+1 {
		minLen = c.overlap + 1
	}
	lo := start + minLen

	for _, tier := range separatorTiers {
		best := -1
		for _, sep := range tier {
			if p := lastSeparatorEnd(runes, sep, lo, end); p > best {
				best = p
			}
		}
		if best > 0 {
			return best
		}
	}
	return end
}

// nextStart returns the start of the window after [start, end). The result
// lies in [end-overlap, end) so consecutive chunks share at least one rune,
// preferring the first word start in that range.
func (c *TextChunker) nextStart(runes []rune, start, end int) int {
	if c.overlap == 0 {
		return end
	}
	lo := end - c.overlap
	if lo <= start {
		lo = start + 1
	}
	for p := lo; p < end; p++ {
		if unicode.IsSpace(runes[p-1]) && !unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return lo
}

// lastSeparatorEnd returns the largest p in [lo, hi] such that sep ends at p, or -1.
func lastSeparatorEnd(runes []rune, sep string, lo, hi int) int {
	s := []rune(sep)
	for p := hi; p >= lo && p >= len(s); p-- {
		match := true
		for i := range s {
			if runes[p-len(s)+i] != s[i] {
				match = false
				break
			}
		}
		if match {
			return p
		}
	}
	return -1
}

func generateChunkID(paperID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", paperID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
