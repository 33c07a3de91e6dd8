package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/earningsrag/core"
)

func writeTranscript(t *testing.T, root, ticker, name, body string) {
	t.Helper()
	dir := filepath.Join(root, ticker)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestDirectory_Fetch(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "MSFT", "2024-Q1.yaml", `
source_url: https://example.com/msft
paragraphs:
  - paragraph_number: 1
    speaker: Satya Nadella
    content: Azure revenue grew 31 percent.
  - speaker: null
    content: Next question please.
  - content: "   "
`)

	doc, err := NewDirectory(root).Fetch(context.Background(), "msft", 2024, 1)
	require.NoError(t, err)

	assert.Equal(t, DirectorySourceName, doc.Source)
	assert.Equal(t, "https://example.com/msft", doc.SourceURL)
	assert.False(t, doc.FetchedAt.IsZero())
	require.Len(t, doc.Paragraphs, 2)
	assert.Equal(t, 1, doc.Paragraphs[0].Number)
	assert.Equal(t, "Satya Nadella", doc.Paragraphs[0].SpeakerName())
	assert.Equal(t, 2, doc.Paragraphs[1].Number)
	assert.Nil(t, doc.Paragraphs[1].Speaker)
}

func TestDirectory_Missing(t *testing.T) {
	_, err := NewDirectory(t.TempDir()).Fetch(context.Background(), "MSFT", 2024, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, core.ClassNotFound, core.Classify(err))
}

func TestDirectory_EmptyParagraphs(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "MSFT", "2024-Q2.yaml", "paragraphs: []\n")

	_, err := NewDirectory(root).Fetch(context.Background(), "MSFT", 2024, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_Malformed(t *testing.T) {
	root := t.TempDir()
	writeTranscript(t, root, "MSFT", "2024-Q3.yaml", "paragraphs: {not: [a list\n")

	_, err := NewDirectory(root).Fetch(context.Background(), "MSFT", 2024, 3)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDirectory_Path(t *testing.T) {
	d := NewDirectory("/data")
	assert.Equal(t, filepath.Join("/data", "AAPL", "2023-Q4.yaml"), d.Path(" aapl ", 2023, 4))
}
