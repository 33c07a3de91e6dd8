package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/earningsrag/core"
)

// DirectorySourceName is recorded as the source of transcripts read from disk.
const DirectorySourceName = "directory"

// Directory reads transcripts stored as YAML files laid out as
// <root>/<TICKER>/<year>-Q<quarter>.yaml:
//
//	source_url: https://example.com/msft-2024-q1
//	paragraphs:
//	  - paragraph_number: 1
//	    speaker: Satya Nadella
//	    content: Thank you for joining us.
type Directory struct {
	root string
}

var _ Source = (*Directory)(nil)

// NewDirectory creates a source rooted at root.
func NewDirectory(root string) *Directory {
	return &Directory{root: root}
}

type transcriptFile struct {
	SourceURL  string           `yaml:"source_url"`
	Paragraphs []core.Paragraph `yaml:"paragraphs"`
}

// Path returns the file a transcript is read from.
func (d *Directory) Path(ticker string, year, quarter int) string {
	return filepath.Join(d.root, core.NormalizeTicker(ticker), fmt.Sprintf("%d-Q%d.yaml", year, quarter))
}

// Fetch reads and parses the transcript file. Paragraphs without a number
// are numbered by position.
func (d *Directory) Fetch(ctx context.Context, ticker string, year, quarter int) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := d.Path(ticker, year, quarter)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s %d Q%d", ErrNotFound, core.NormalizeTicker(ticker), year, quarter)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var file transcriptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}

	paragraphs := make([]core.Paragraph, 0, len(file.Paragraphs))
	for i, p := range file.Paragraphs {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		if p.Number == 0 {
			p.Number = i + 1
		}
		paragraphs = append(paragraphs, p)
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("%w: %s has no paragraphs", ErrNotFound, path)
	}

	return &Document{
		Source:     DirectorySourceName,
		SourceURL:  file.SourceURL,
		Paragraphs: paragraphs,
		FetchedAt:  time.Now().UTC(),
	}, nil
}
