package qa

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/earningsrag/chunking"
	"github.com/poiesic/earningsrag/core"
)

// DefaultMaxContextChars bounds the context handed to the model.
const DefaultMaxContextChars = 6000

// InsufficientEvidenceAnswer is the fixed reply when nothing was retrieved.
const InsufficientEvidenceAnswer = "Not enough evidence in the transcripts to answer."

const systemPrompt = "You are an expert financial transcript assistant. " +
	"Answer the question using only the provided context. " +
	"If the context is insufficient, say: \"" + InsufficientEvidenceAnswer + "\" " +
	"Cite sources in brackets using chunk_id, e.g. [chunk_id=...]. " +
	"When a chunk names its speaker in chunk_speaker, attribute the claim to that speaker, " +
	"e.g. As said by (chunk_speaker)..."

// Options controls context assembly.
type Options struct {
	// Strategy is the strategy the chunks were built with. It selects the
	// metadata rendered in each block header.
	Strategy chunking.Strategy

	// MaxContextChars caps the total length, in characters, of the context blocks.
	MaxContextChars int
}

// DefaultOptions returns paragraph headers and DefaultMaxContextChars.
func DefaultOptions() Options {
	return Options{
		Strategy:        chunking.StrategyParagraph,
		MaxContextChars: DefaultMaxContextChars,
	}
}

// Validate checks the strategy and the context budget.
func (o Options) Validate() error {
	if _, err := chunking.ParseStrategy(string(o.Strategy)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.MaxContextChars <= 0 {
		return fmt.Errorf("%w: max context chars must be positive, got %d", ErrInvalidOptions, o.MaxContextChars)
	}
	return nil
}

// Prompt is the input for the answer generator.
type Prompt struct {
	System string
	User   string

	// Blocks is the number of chunks included in the context.
	Blocks int
}

// Augment builds the prompt for question from ranked results. Each result
// becomes a header line followed by the chunk text. Blocks are added in
// order while the cumulative length stays within opts.MaxContextChars; the
// first block that would overflow ends assembly.
//
// Returns ErrInsufficientEvidence when results is empty or when not even
// the first block fits.
func Augment(question string, results []core.ScoredChunk, opts Options) (Prompt, error) {
	if err := opts.Validate(); err != nil {
		return Prompt{}, err
	}
	if len(results) == 0 {
		return Prompt{}, ErrInsufficientEvidence
	}
	strategy, _ := chunking.ParseStrategy(string(opts.Strategy))

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = renderBlock(r, strategy)
	}
	included := fitBlocks(blocks, opts.MaxContextChars)
	if len(included) == 0 {
		return Prompt{}, fmt.Errorf("%w: first block exceeds %d characters", ErrInsufficientEvidence, opts.MaxContextChars)
	}

	user := "Question:\n" + question + "\n\n" +
		"Context:\n" + strings.Join(included, "\n") + "\n\n" +
		"Answer with citations after each claim."
	return Prompt{System: systemPrompt, User: user, Blocks: len(included)}, nil
}

// fitBlocks returns the longest prefix of blocks whose total length is at
// most limit characters.
func fitBlocks(blocks []string, limit int) []string {
	total := 0
	for i, b := range blocks {
		n := utf8.RuneCountInString(b)
		if total+n > limit {
			return blocks[:i]
		}
		total += n
	}
	return blocks
}

func renderBlock(r core.ScoredChunk, strategy chunking.Strategy) string {
	c := r.Chunk
	var header string
	switch strategy {
	case chunking.StrategySemantic:
		header = fmt.Sprintf("[chunk_id=%s, transcript_id=%s, score=%.3f]",
			c.ChunkID, c.TranscriptID, r.Score)
	default:
		speaker, ok := c.Data.Speaker()
		if !ok || speaker == "" {
			speaker = "unknown"
		}
		para, _ := c.Data.ParagraphNumber()
		header = fmt.Sprintf("[chunk_id=%s, transcript_id=%s, chunk_speaker=%s, para_number=%d, score=%.3f]",
			c.ChunkID, c.TranscriptID, speaker, para, r.Score)
	}
	return header + "\n" + c.Text()
}
