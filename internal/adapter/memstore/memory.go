package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"paperchat/internal/domain"
	"paperchat/internal/port"
)

// MemoryStore is a non-durable VectorStore and PaperStore for tests and
// one-shot runs.
type MemoryStore struct {
	mu      sync.RWMutex
	papers  map[string]domain.Paper
	records []record
	nextID  uint64
}

type record struct {
	id   uint64
	item port.VectorItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		papers: make(map[string]domain.Paper),
	}
}

func (s *MemoryStore) PutPaper(paper domain.Paper) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.papers[paper.ID] = paper
	return nil
}

func (s *MemoryStore) GetPaper(id string) (domain.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paper, ok := s.papers[id]
	if !ok {
		return domain.Paper{}, fmt.Errorf("%w: %s", domain.ErrPaperNotFound, id)
	}
	return paper, nil
}

func (s *MemoryStore) DeletePaper(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.papers[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrPaperNotFound, id)
	}
	delete(s.papers, id)
	return nil
}

func (s *MemoryStore) ListPapers() ([]domain.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	papers := make([]domain.Paper, 0, len(s.papers))
	for _, paper := range s.papers {
		papers = append(papers, paper)
	}
	sort.Slice(papers, func(i, j int) bool {
		if !papers[i].IngestedAt.Equal(papers[j].IngestedAt) {
			return papers[i].IngestedAt.After(papers[j].IngestedAt)
		}
		return papers[i].ID < papers[j].ID
	})
	return papers, nil
}

func (s *MemoryStore) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.nextID++
		s.records = append(s.records, record{id: s.nextID, item: item})
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, query []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]port.VectorResult, 0)
	for _, r := range s.records {
		if !port.MatchesFilter(r.item.Metadata, filter) {
			continue
		}
		if len(r.item.Vector) != len(query) {
			return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", len(r.item.Vector), len(query))
		}
		results = append(results, port.VectorResult{
			ID:       strconv.FormatUint(r.id, 10),
			Text:     r.item.Text,
			Score:    cosine(query, r.item.Vector),
			Metadata: r.item.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (s *MemoryStore) DeleteByFilter(_ context.Context, filter map[string]string) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete requires a non-empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if port.MatchesFilter(r.item.Metadata, filter) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
