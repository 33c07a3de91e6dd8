package core

import (
	"encoding/json"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "guidance",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("revenue")
	id2 := IDFromContent("margin")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestChunkData_SurvivesJSON(t *testing.T) {
	speaker := "Tim Cook"
	data := ChunkData{
		KeyChunkText:   "Services hit a record.",
		KeyParaNumber:  7,
		KeyParaSpeaker: &speaker,
		KeyTokenCount:  5.5,
	}

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ChunkData
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := decoded.Text(); got != "Services hit a record." {
		t.Errorf("Text() = %q", got)
	}
	if n, ok := decoded.ParagraphNumber(); !ok || n != 7 {
		t.Errorf("ParagraphNumber() = %d, %v", n, ok)
	}
	if s, ok := decoded.Speaker(); !ok || s != "Tim Cook" {
		t.Errorf("Speaker() = %q, %v", s, ok)
	}
	if _, ok := decoded.Int(KeyTokenCount); ok {
		t.Errorf("Int() should reject fractional values")
	}
}

func TestChunkData_NilSpeaker(t *testing.T) {
	var speaker *string
	data := ChunkData{KeyParaSpeaker: speaker}
	if _, ok := data.Speaker(); ok {
		t.Errorf("Speaker() should report missing speaker")
	}
}

func TestChunkRecord_HasEmbedding(t *testing.T) {
	r := &ChunkRecord{}
	if r.HasEmbedding() {
		t.Errorf("empty record should not have an embedding")
	}
	r.Embedding = []float32{0.1}
	if !r.HasEmbedding() {
		t.Errorf("record with a vector should have an embedding")
	}
}
