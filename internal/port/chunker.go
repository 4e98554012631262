package port

import "paperchat/internal/domain"

type Chunker interface {
	Chunk(paper domain.Paper, text string) ([]domain.Chunk, error)
}
