package badger

import (
	"github.com/poiesic/earningsrag/storage"
)

// Repository bundles the BadgerDB repositories over one backend.
type Repository struct {
	*Backend
	*CompanyRepository
	*TranscriptRepository
	*ChunkRepository
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens a BadgerDB database in the directory at path.
func NewRepository(path string) (storage.Repository, error) {
	return openRepository(path, false)
}

func openRepository(path string, inMemory bool) (*Repository, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	return newRepository(backend), nil
}

func newRepository(backend *Backend) *Repository {
	return &Repository{
		Backend:              backend,
		CompanyRepository:    NewCompanyRepository(backend),
		TranscriptRepository: NewTranscriptRepository(backend),
		ChunkRepository:      NewChunkRepository(backend),
	}
}
