package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls [][]string
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int    { return 1 }
func (e *countingEmbedder) ModelName() string { return "counting" }

func TestEmbeddingCache_LRUEviction(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)
	c.Put(1, []float32{1})
	c.Put(2, []float32{2})

	_, ok := c.Get(1) // 1 becomes most recent
	require.True(t, ok)

	c.Put(3, []float32{3})

	_, ok = c.Get(2)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestEmbeddingCache_TTL(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Put(7, []float32{7})

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := c.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestCachedEmbedder_ForwardsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Minute))

	first, err := e.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"a", "bb"}, inner.calls[0])
	assert.Equal(t, []string{"ccc"}, inner.calls[1])

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, []float32{3}, second[1])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, "counting", e.ModelName())
}

func TestHash_DependsOnModel(t *testing.T) {
	a, err := embeddingKey("m1", "text")
	require.NoError(t, err)
	b, err := embeddingKey("m2", "text")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
