package port

import "ragdesk/internal/domain"

type Chunker interface {
	Chunk(doc *domain.Document) ([]domain.Chunk, error)
}
