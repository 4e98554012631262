package usecase

import (
	"context"
	"errors"
	"strings"

	"paperchat/internal/domain"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(string) (string, error) {
	return f.text, f.err
}

// keywordEmbedder gives each text a unit vector along the axis of the first
// keyword it contains; texts without a keyword get the last axis.
type keywordEmbedder struct {
	keywords []string
	calls    int
	failOn   int // fail on this call number (1-based), 0 = never
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.failOn > 0 && e.calls == e.failOn {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, e.Dimension())
		axis := len(e.keywords)
		for j, kw := range e.keywords {
			if strings.Contains(t, kw) {
				axis = j
				break
			}
		}
		v[axis] = 1
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int    { return len(e.keywords) + 1 }
func (e *keywordEmbedder) ModelName() string { return "keyword" }

// scriptedRetriever returns fixed candidates regardless of the query.
type scriptedRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	calls  int
}

func (r *scriptedRetriever) Search(_ context.Context, _, paperID string, k int) ([]domain.ScoredChunk, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.ScoredChunk
	for _, c := range r.chunks {
		if c.Chunk.PaperID == paperID {
			out = append(out, c)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func scored(paperID, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{Chunk: domain.Chunk{PaperID: paperID, Text: text}, Score: score}
}
