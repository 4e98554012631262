package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore stores and searches embedding vectors.
type VectorStore interface {
	// Upsert adds vectors to the store.
	Upsert(ctx context.Context, items []VectorItem) error

	// Search finds the k nearest vectors to the query among records whose
	// metadata contains every key/value pair of filter.
	Search(ctx context.Context, query []float32, k int, filter map[string]string) ([]VectorResult, error)

	// DeleteByFilter removes every record matching filter and returns how many were removed.
	DeleteByFilter(ctx context.Context, filter map[string]string) (int, error)

	// Count returns the number of vectors in the store.
	Count(ctx context.Context) (int, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	Text     string            // Chunk text
	Vector   []float32         // Embedding vector
	Metadata map[string]string // Paper and chunk metadata
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string            // Store-assigned record key
	Text     string            // Chunk text
	Score    float64           // Cosine similarity (higher is better)
	Metadata map[string]string // Stored metadata
}

// MatchesFilter reports whether metadata contains every pair in filter.
func MatchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if got, ok := metadata[k]; !ok || got != v {
			return false
		}
	}
	return true
}
