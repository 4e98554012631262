package retriever

import (
	"context"
	"fmt"
	"strconv"

	"paperchat/internal/domain"
	"paperchat/internal/port"
)

// SemanticRetriever embeds a query and searches the vector store restricted
// to a single paper.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
}

func NewSemanticRetriever(vectorStore port.VectorStore, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
	}
}

func (r *SemanticRetriever) Search(ctx context.Context, query, paperID string, k int) ([]domain.ScoredChunk, error) {
	if r.vectorStore == nil || r.embedder == nil {
		return nil, fmt.Errorf("semantic search not available: embeddings not configured")
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	filter := map[string]string{domain.MetaPaperID: paperID}
	results, err := r.vectorStore.Search(ctx, embeddings[0], k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: chunkFromRecord(result),
			Score: result.Score,
		})
	}

	return chunks, nil
}

func chunkFromRecord(r port.VectorResult) domain.Chunk {
	index, _ := strconv.Atoi(r.Metadata[domain.MetaChunkIndex])
	return domain.Chunk{
		ID:               r.Metadata[domain.MetaChunkID],
		PaperID:          r.Metadata[domain.MetaPaperID],
		Filename:         r.Metadata[domain.MetaFilename],
		OriginalFilename: r.Metadata[domain.MetaOriginalFilename],
		SourcePath:       r.Metadata[domain.MetaSource],
		Index:            index,
		Text:             r.Text,
	}
}

// ChunkMetadata is the record metadata stored for c.
func ChunkMetadata(c domain.Chunk) map[string]string {
	return map[string]string{
		domain.MetaPaperID:          c.PaperID,
		domain.MetaFilename:         c.Filename,
		domain.MetaOriginalFilename: c.OriginalFilename,
		domain.MetaSource:           c.SourcePath,
		domain.MetaChunkID:          c.ID,
		domain.MetaChunkIndex:       strconv.Itoa(c.Index),
	}
}
