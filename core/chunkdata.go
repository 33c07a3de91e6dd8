package core

import (
	"encoding/json"
	"math"
)

// Chunk payload keys.
const (
	KeyChunkText      = "chunk_text"
	KeyChunkIndex     = "chunk_index"
	KeyCharCount      = "chunk_char_count"
	KeyWordCount      = "chunk_word_count"
	KeyTokenCount     = "chunk_token_count"
	KeyParaNumber     = "para_number"
	KeyParaSpeaker    = "para_speaker"
	KeyParaChunkIndex = "para_chunk_index"
)

// ChunkData is the free-form payload stored alongside a chunk.
// Values survive a JSON round trip, so numeric values may come back as float64.
type ChunkData map[string]any

// Text returns the chunk text or an empty string.
func (d ChunkData) Text() string {
	s, _ := d[KeyChunkText].(string)
	return s
}

// Speaker returns the paragraph speaker, if any.
func (d ChunkData) Speaker() (string, bool) {
	switch v := d[KeyParaSpeaker].(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	default:
		return "", false
	}
}

// ParagraphNumber returns the source paragraph number, if any.
func (d ChunkData) ParagraphNumber() (int, bool) {
	return d.Int(KeyParaNumber)
}

// Int reads an integral value regardless of how it was decoded.
func (d ChunkData) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Clone returns a shallow copy of the payload.
func (d ChunkData) Clone() ChunkData {
	if d == nil {
		return nil
	}
	out := make(ChunkData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
