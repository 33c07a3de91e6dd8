package local

import (
	"context"
	"fmt"

	"github.com/poiesic/earningsrag/ai"
)

// Provider implements ai.AIProvider with in-process services.
type Provider struct {
	embedder  *Embedder
	extractor *EntityExtractor
}

// NewProvider creates a local provider.
//
// Returns ai.AIProvider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Provider{
		embedder:  NewEmbedder(config.EmbeddingDimensions),
		extractor: NewEntityExtractor(),
	}, nil
}

// Embedder returns the hashing embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns a generator that always fails with ai.ErrNotSupported.
func (p *Provider) Generator() ai.Generator {
	return unsupportedGenerator{}
}

// EntityExtractor returns the heuristic extractor.
func (p *Provider) EntityExtractor() ai.EntityExtractor {
	return p.extractor
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

type unsupportedGenerator struct{}

func (unsupportedGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	return "", fmt.Errorf("local provider: %w: answer generation needs ollama or openai", ai.ErrNotSupported)
}
