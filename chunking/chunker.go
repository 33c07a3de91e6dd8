package chunking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/core"
)

// Chunker builds chunks for transcripts with one configured strategy.
// It is safe for concurrent use when its embedder is.
type Chunker struct {
	opts     Options
	embedder ai.Embedder
	splitter SentenceSplitter
	logger   *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithSentenceEmbedder sets the embedder used by the semantic strategy.
func WithSentenceEmbedder(embedder ai.Embedder) Option {
	return func(c *Chunker) error {
		c.embedder = embedder
		return nil
	}
}

// WithSentenceSplitter replaces SplitSentences.
func WithSentenceSplitter(splitter SentenceSplitter) Option {
	return func(c *Chunker) error {
		if splitter == nil {
			return fmt.Errorf("%w: nil sentence splitter", ErrInvalidOptions)
		}
		c.splitter = splitter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New validates opts and creates a Chunker. Configuration problems (unknown
// strategy, bad parameters, semantic strategy without an embedder) are
// reported here rather than per call.
func New(opts Options, options ...Option) (*Chunker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Strategy, _ = ParseStrategy(string(opts.Strategy))

	c := &Chunker{
		opts:     opts,
		splitter: SentenceSplitterFunc(SplitSentences),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.opts.Strategy == StrategySemantic && c.embedder == nil {
		return nil, ErrEmbedderRequired
	}
	c.logger = c.logger.With("component", "chunker", "strategy", string(c.opts.Strategy))
	return c, nil
}

// Strategy returns the configured strategy.
func (c *Chunker) Strategy() Strategy {
	return c.opts.Strategy
}

// Build splits a transcript into ordered chunks. Empty text yields no chunks
// and no error.
func (c *Chunker) Build(ctx context.Context, t *core.Transcript) ([]core.Chunk, error) {
	if t == nil {
		return nil, ErrTranscriptRequired
	}

	var chunks []core.Chunk
	switch c.opts.Strategy {
	case StrategyParagraph:
		chunks = ChunkParagraphs(t.ID, t.CompanyID, t.Paragraphs, c.opts.ChunkSize)
	case StrategySemantic:
		texts, err := c.semanticTexts(ctx, t.RawText)
		if err != nil {
			return nil, err
		}
		chunks = SemanticChunks(t.ID, t.CompanyID, texts)
	}

	c.logger.Debug("built chunks", "transcript_id", t.ID, "count", len(chunks))
	return chunks, nil
}

func (c *Chunker) semanticTexts(ctx context.Context, text string) ([]string, error) {
	sentences := c.splitter.Split(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	vectors, err := c.embedder.EmbedTexts(ctx, sentences)
	if err != nil {
		return nil, ai.UpstreamError("embed sentences", err)
	}
	// Every vector must match the embedder, or the first vector when the
	// embedder does not know its dimensions.
	dims := c.embedder.Dimensions()
	if dims <= 0 && len(vectors) > 0 {
		dims = len(vectors[0])
	}
	if err := ai.CheckEmbeddings(vectors, len(sentences), dims); err != nil {
		return nil, err
	}
	return ClusterSentences(sentences, vectors, c.opts.SimilarityThreshold, c.opts.MaxTokens)
}
