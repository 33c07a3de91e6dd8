package chunking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/earningsrag/core"
)

// Strategy names a chunking strategy.
type Strategy string

const (
	StrategyParagraph Strategy = "paragraph"
	StrategySemantic  Strategy = "semantic"
)

// Defaults.
const (
	DefaultChunkSize           = 200
	DefaultSimilarityThreshold = 0.6
	DefaultMaxTokens           = 500
)

var (
	// ErrUnknownStrategy is returned for strategy names other than paragraph and semantic.
	ErrUnknownStrategy = fmt.Errorf("chunking: %w: unknown strategy", core.ErrConfiguration)

	// ErrInvalidOptions is returned by Options.Validate.
	ErrInvalidOptions = fmt.Errorf("chunking: %w: invalid options", core.ErrConfiguration)

	// ErrEmbedderRequired is returned when the semantic strategy has no sentence embedder.
	ErrEmbedderRequired = fmt.Errorf("chunking: %w: semantic strategy needs a sentence embedder", core.ErrConfiguration)

	// ErrTranscriptRequired is returned by Build for a nil transcript.
	ErrTranscriptRequired = errors.New("chunking: transcript is required")
)

// ParseStrategy converts a configured name into a Strategy.
// Matching ignores case and surrounding whitespace.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case StrategyParagraph, StrategySemantic:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Options selects a strategy and its parameters.
type Options struct {
	Strategy Strategy

	// ChunkSize is the paragraph strategy's character budget per chunk.
	ChunkSize int

	// SimilarityThreshold is the minimum cosine similarity, in [0,1], for a
	// sentence to join the running semantic chunk.
	SimilarityThreshold float64

	// MaxTokens caps the approximate token count of a semantic chunk.
	MaxTokens int
}

// DefaultOptions returns the paragraph strategy with default parameters.
func DefaultOptions() Options {
	return Options{
		Strategy:            StrategyParagraph,
		ChunkSize:           DefaultChunkSize,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxTokens:           DefaultMaxTokens,
	}
}

// Validate checks the options used by the selected strategy.
func (o Options) Validate() error {
	s, err := ParseStrategy(string(o.Strategy))
	if err != nil {
		return err
	}
	switch s {
	case StrategyParagraph:
		if o.ChunkSize <= 0 {
			return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
		}
	case StrategySemantic:
		if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
			return fmt.Errorf("%w: similarity threshold must be in [0,1], got %g", ErrInvalidOptions, o.SimilarityThreshold)
		}
		if o.MaxTokens <= 0 {
			return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidOptions, o.MaxTokens)
		}
	}
	return nil
}
