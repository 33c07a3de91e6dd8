package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in one
	// model call. The returned slice is in the same order as the input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the model that produced the vectors. It is stored next
	// to every persisted embedding.
	Model() string

	// Dimensions is the length of every vector this embedder returns.
	Dimensions() int
}

// Generator produces a natural-language answer from prompts.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends the system instructions and the user message to the
	// model and returns the trimmed reply.
	Generate(ctx context.Context, system, user string) (string, error)
}

// EntityExtractor finds named entities in text.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities returns every entity mention found in text, in order of
	// appearance. Repeated mentions are returned repeatedly so callers can
	// count them. Returns an empty slice if nothing is found.
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the answer generation service.
	Generator() Generator

	// EntityExtractor returns the entity extraction service.
	EntityExtractor() EntityExtractor

	// Close releases resources held by the provider and its services.
	Close() error
}
