package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/domain"
	"paperchat/internal/port"
)

func TestMemoryStore_SearchFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, []port.VectorItem{
		{Text: "x", Vector: []float32{1, 0}, Metadata: map[string]string{domain.MetaPaperID: "p2"}},
		{Text: "a", Vector: []float32{1, 1}, Metadata: map[string]string{domain.MetaPaperID: "p1"}},
		{Text: "b", Vector: []float32{2, 2}, Metadata: map[string]string{domain.MetaPaperID: "p1"}},
		{Text: "c", Vector: []float32{1, 0}, Metadata: map[string]string{domain.MetaPaperID: "p1"}},
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2, map[string]string{domain.MetaPaperID: "p1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].Text)
	assert.Equal(t, "a", results[1].Text, "tie resolved by insertion order")

	removed, err := s.DeleteByFilter(ctx, map[string]string{domain.MetaPaperID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	n, _ := s.Count(ctx)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_SearchNonPositiveK(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, []port.VectorItem{
		{Text: "a", Vector: []float32{1, 0}, Metadata: map[string]string{domain.MetaPaperID: "p1"}},
	}))
	for _, k := range []int{0, -1} {
		results, err := s.Search(ctx, []float32{1, 0}, k, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}

func TestMemoryStore_Papers(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.PutPaper(domain.Paper{ID: "p1"}))

	_, err := s.GetPaper("p1")
	require.NoError(t, err)
	_, err = s.GetPaper("nope")
	assert.True(t, errors.Is(err, domain.ErrPaperNotFound))

	papers, err := s.ListPapers()
	require.NoError(t, err)
	assert.Len(t, papers, 1)
}
