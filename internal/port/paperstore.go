package port

import "paperchat/internal/domain"

type PaperStore interface {
	PutPaper(paper domain.Paper) error

	GetPaper(id string) (domain.Paper, error)

	ListPapers() ([]domain.Paper, error)

	DeletePaper(id string) error
}
