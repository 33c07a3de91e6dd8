package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
)

// packWords greedily packs the whitespace-separated words of text into
// pieces. A word joins the current piece while the piece's length, counting
// one trailing separator per word, plus the word and its separator stays
// within size. A word that does not fit starts a new piece, so a single
// word longer than size forms a piece of its own. Pieces are never empty.
func packWords(text string, size int) []string {
	var pieces []string
	var cur strings.Builder
	curLen := 0

	for _, w := range strings.Fields(text) {
		wl := utf8.RuneCountInString(w)
		if curLen > 0 && curLen+wl+1 > size {
			pieces = append(pieces, strings.TrimSpace(cur.String()))
			cur.Reset()
			curLen = 0
		}
		cur.WriteString(w)
		cur.WriteByte(' ')
		curLen += wl + 1
	}
	if curLen > 0 {
		pieces = append(pieces, strings.TrimSpace(cur.String()))
	}
	return pieces
}

// ChunkParagraphs applies the paragraph strategy. Paragraphs are processed
// in order; chunk indices are 1-based and run across the whole transcript.
func ChunkParagraphs(transcriptID, companyID uuid.UUID, paragraphs []core.Paragraph, size int) []core.Chunk {
	var chunks []core.Chunk
	idx := 0
	for _, para := range paragraphs {
		for local, text := range packWords(para.Content, size) {
			idx++
			data := textStats(text)
			data[core.KeyParaNumber] = para.Number
			data[core.KeyParaSpeaker] = para.Speaker
			data[core.KeyParaChunkIndex] = local
			chunks = append(chunks, core.NewChunk(transcriptID, companyID, idx, data))
		}
	}
	return chunks
}

// textStats returns the payload fields shared by both strategies.
func textStats(text string) core.ChunkData {
	chars := utf8.RuneCountInString(text)
	return core.ChunkData{
		core.KeyCharCount:  chars,
		core.KeyWordCount:  len(strings.Fields(text)),
		core.KeyTokenCount: float64(chars) / 4,
		core.KeyChunkText:  text,
	}
}
