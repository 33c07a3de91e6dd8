package local

import (
	"context"
	"strings"
	"unicode"

	"github.com/poiesic/earningsrag/ai"
)

// orgMarkers end a capitalized run that names an organization.
var orgMarkers = map[string]bool{
	"inc": true, "corp": true, "corporation": true, "ltd": true, "llc": true,
	"plc": true, "co": true, "company": true, "group": true, "holdings": true,
	"technologies": true, "systems": true, "bank": true, "partners": true,
}

// EntityExtractor finds organization mentions with two rules: a run of
// capitalized words ending in a corporate marker ("Acme Holdings", "Apple
// Inc."), or an all-caps word of two to five letters ("TSMC", "AMD").
type EntityExtractor struct{}

// NewEntityExtractor creates the heuristic extractor.
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{}
}

// ExtractEntities returns ORG mentions in order of appearance.
func (x *EntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, ai.UpstreamError("extract entities", err)
	}

	out := make([]ai.Entity, 0)
	var run []string
	flush := func() {
		run = run[:0]
	}

	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '&'
		})
		if word == "" {
			flush()
			continue
		}

		if isAcronym(word) {
			flush()
			out = append(out, ai.Entity{Text: word, Label: ai.LabelOrganization})
			continue
		}
		if !unicode.IsUpper([]rune(word)[0]) {
			flush()
			continue
		}

		run = append(run, word)
		if orgMarkers[strings.ToLower(word)] && len(run) > 1 {
			out = append(out, ai.Entity{Text: strings.Join(run, " "), Label: ai.LabelOrganization})
			flush()
			continue
		}
		// A sentence boundary inside the field ends the run.
		if strings.ContainsAny(field[len(field)-1:], ".!?,;:") {
			flush()
		}
	}
	return out, nil
}

func isAcronym(word string) bool {
	n := 0
	for _, r := range word {
		if r < 'A' || r > 'Z' {
			return false
		}
		n++
	}
	return n >= 2 && n <= 5
}
