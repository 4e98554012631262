package usecase

import (
	"context"
	"log/slog"
	"strings"

	"paperchat/internal/domain"
	"paperchat/internal/port"
)

// ContextDelimiter separates chunk texts in an assembled context.
const ContextDelimiter = "\n\n---\n\n"

// RetrieveUseCase finds the passages of one paper relevant to a question.
type RetrieveUseCase struct {
	retriever port.Retriever
	logger    *slog.Logger
}

func NewRetrieveUseCase(retriever port.Retriever, logger *slog.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		retriever: retriever,
		logger:    logger,
	}
}

// Retrieve returns the top-k chunks of paperID scoring at least threshold.
// When none qualify the result has Found == false and an empty Context;
// that is not an error.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query, paperID string, k int, threshold float64) (domain.QueryResult, error) {
	result := domain.QueryResult{Query: query}

	candidates, err := u.retriever.Search(ctx, query, paperID, k)
	if err != nil {
		return result, err
	}

	log := u.logger.With("paper_id", paperID)
	for _, c := range candidates {
		log.Debug("candidate", "chunk_index", c.Chunk.Index, "score", c.Score)
	}

	if len(candidates) == 0 {
		log.Info("no indexed content for paper")
		return result, nil
	}

	result.Chunks = filterByThreshold(candidates, threshold)
	if len(result.Chunks) == 0 {
		log.Info("all candidates below threshold", "threshold", threshold, "best", candidates[0].Score)
		return result, nil
	}

	result.Context = BuildContext(result.Chunks)
	result.Found = true
	return result, nil
}

// filterByThreshold keeps results scoring at least threshold, preserving order.
func filterByThreshold(results []domain.ScoredChunk, threshold float64) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// BuildContext joins chunk texts in the given order.
func BuildContext(chunks []domain.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, ContextDelimiter)
}
