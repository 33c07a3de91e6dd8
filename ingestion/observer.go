package ingestion

import (
	"time"

	"github.com/poiesic/earningsrag/storage"
)

// Observer receives ingestion events. The metric package provides a
// Prometheus implementation.
type Observer interface {
	// TranscriptIngested is called after a transcript and its chunks are stored.
	TranscriptIngested(ticker string, chunks int, elapsed time.Duration)

	// IngestFailed is called when a request fails at stage.
	IngestFailed(stage string, err error)

	// ChunksEmbedded is called after an EmbedChunks call. embedded is the
	// number of texts sent to the embedding model.
	ChunksEmbedded(result storage.UpsertResult, embedded int, elapsed time.Duration)
}

// Pipeline stages reported to Observer.IngestFailed.
const (
	StageResolve    = "resolve"
	StageCompany    = "company"
	StageFetch      = "fetch"
	StagePreprocess = "preprocess"
	StagePersist    = "persist"
	StageChunk      = "chunk"
	StageEmbed      = "embed"
)

type noopObserver struct{}

var _ Observer = noopObserver{}

func (noopObserver) TranscriptIngested(string, int, time.Duration) {}
func (noopObserver) IngestFailed(string, error) {}
func (noopObserver) ChunksEmbedded(storage.UpsertResult, int, time.Duration) {}
