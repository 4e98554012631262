package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"go.etcd.io/bbolt"

	"paperchat/internal/port"
)

// BoltVectorStore implements VectorStore on the BoltStore's vectors bucket.
// Records are keyed by a bucket sequence so insertion order survives restarts.
// Search is brute force over an in-memory mirror.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	entries   []vectorEntry // insertion order
}

type vectorEntry struct {
	seq      uint64
	text     string
	vector   []float32
	metadata map[string]string
}

type storedVector struct {
	Text     string            `json:"t"`
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

func NewBoltVectorStore(s *BoltStore, dimension int) (*BoltVectorStore, error) {
	store := &BoltVectorStore{
		db:        s.db,
		dimension: dimension,
	}

	if err := store.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return store, nil
}

func (s *BoltVectorStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}

		// Big-endian keys iterate in sequence order.
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return nil
			}
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.entries = append(s.entries, vectorEntry{
				seq:      binary.BigEndian.Uint64(k),
				text:     stored.Text,
				vector:   stored.Vector,
				metadata: stored.Metadata,
			})
			return nil
		})
	})
}

// Upsert appends items in one transaction. Either all items are stored or none.
func (s *BoltVectorStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]vectorEntry, 0, len(items))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return fmt.Errorf("vectors bucket not found")
		}

		for _, item := range items {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			data, err := json.Marshal(storedVector{
				Text:     item.Text,
				Vector:   item.Vector,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(seq), data); err != nil {
				return err
			}
			added = append(added, vectorEntry{
				seq:      seq,
				text:     item.Text,
				vector:   item.Vector,
				metadata: item.Metadata,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.entries = append(s.entries, added...)
	return nil
}

// Search returns the k records most cosine-similar to query among those
// matching filter. Equal scores keep insertion order.
func (s *BoltVectorStore) Search(ctx context.Context, query []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry *vectorEntry
		score float64
	}

	scores := make([]scored, 0, len(s.entries))
	for i := range s.entries {
		e := &s.entries[i]
		if !port.MatchesFilter(e.metadata, filter) {
			continue
		}
		scores = append(scores, scored{entry: e, score: cosineSimilarity(query, e.vector)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]port.VectorResult, k)
	for i := 0; i < k; i++ {
		results[i] = port.VectorResult{
			ID:       strconv.FormatUint(scores[i].entry.seq, 10),
			Text:     scores[i].entry.text,
			Score:    scores[i].score,
			Metadata: scores[i].entry.metadata,
		}
	}

	return results, nil
}

// DeleteByFilter removes every record whose metadata matches filter. An empty
// filter is rejected rather than clearing the index.
func (s *BoltVectorStore) DeleteByFilter(ctx context.Context, filter map[string]string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete requires a non-empty filter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]vectorEntry, 0, len(s.entries))
	var removed []uint64
	for _, e := range s.entries {
		if port.MatchesFilter(e.metadata, filter) {
			removed = append(removed, e.seq)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		return 0, nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, seq := range removed {
			if err := b.Delete(seqKey(seq)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.entries = kept
	return len(removed), nil
}

func (s *BoltVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
