package qa

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/ai"
	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/core"
)

const (
	snippetChars = 20

	// MultiSpeaker is the speaker of sources built by the semantic strategy,
	// whose chunks span paragraphs.
	MultiSpeaker = "Multi"
)

// Retriever finds the chunks a question is answered from.
type Retriever interface {
	RetrieveTopK(ctx context.Context, question string, filters core.Filters) ([]core.ScoredChunk, error)
}

// Source is a retrieved chunk cited by an answer.
type Source struct {
	CompanyID       uuid.UUID `json:"company_id"`
	TranscriptID    uuid.UUID `json:"transcript_id"`
	ChunkID         uuid.UUID `json:"chunk_id"`
	Speaker         string    `json:"speaker"`
	ParagraphNumber int       `json:"paragraph_num"`
	Score           float32   `json:"score"`
	Snippet         string    `json:"snippet"`
}

// Response is an answer and the chunks it was generated from.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answerer runs retrieval augmented generation over stored transcripts.
type Answerer struct {
	retriever Retriever
	generator ai.Generator
	opts      Options
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
	}
}

// NewAnswerer creates an answerer. opts must match the strategy the stored
// chunks were built with.
func NewAnswerer(retriever Retriever, generator ai.Generator, opts Options, options ...Option) (*Answerer, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Strategy, _ = chunking.ParseStrategy(string(opts.Strategy))

	a := &Answerer{
		retriever: retriever,
		generator: generator,
		opts:      opts,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(a)
	}
	a.logger = a.logger.With("component", "answerer")
	return a, nil
}

// Answer retrieves chunks for question, builds the prompt and asks the
// generator. Without evidence the reply is InsufficientEvidenceAnswer and
// the generator is not called.
func (a *Answerer) Answer(ctx context.Context, question string, filters core.Filters) (*Response, error) {
	start := time.Now()
	results, err := a.retriever.RetrieveTopK(ctx, question, filters)
	if err != nil {
		return nil, err
	}
	sources := a.Sources(results)

	prompt, err := Augment(question, results, a.opts)
	if errors.Is(err, ErrInsufficientEvidence) {
		a.logger.Info("no evidence for question", "retrieved", len(results))
		return &Response{Answer: InsufficientEvidenceAnswer, Sources: sources}, nil
	}
	if err != nil {
		return nil, err
	}

	answer, err := a.generator.Generate(ctx, prompt.System, prompt.User)
	if err != nil {
		return nil, ai.UpstreamError("generate answer", err)
	}
	a.logger.Info("answered question", "retrieved", len(results), "context_blocks", prompt.Blocks,
		"elapsed", time.Since(start))
	return &Response{Answer: answer, Sources: sources}, nil
}

// Sources describes every result as a citation. Semantic chunks have no
// single speaker or paragraph and report MultiSpeaker and paragraph 0.
func (a *Answerer) Sources(results []core.ScoredChunk) []Source {
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		c := r.Chunk
		src := Source{
			CompanyID:    c.CompanyID,
			TranscriptID: c.TranscriptID,
			ChunkID:      c.ChunkID,
			Score:        r.Score,
			Snippet:      snippet(c.Text(), snippetChars),
		}
		if a.opts.Strategy == chunking.StrategySemantic {
			src.Speaker = MultiSpeaker
		} else {
			src.Speaker, _ = c.Data.Speaker()
			src.ParagraphNumber, _ = c.Data.ParagraphNumber()
		}
		sources = append(sources, src)
	}
	return sources
}

// snippet returns the first n characters of text.
func snippet(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
