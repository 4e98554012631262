package port

import (
	"context"

	"paperchat/internal/domain"
)

// Retriever defines the interface for searching indexed paper content.
type Retriever interface {
	// Search returns up to k chunks of the given paper nearest to the query, best first.
	Search(ctx context.Context, query, paperID string, k int) ([]domain.ScoredChunk, error)
}
