package fulltext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"stop words removed", "The cloud is growing", []string{"cloud", "growing"}},
		{"punctuation split", "cloud-based, AI-driven!", []string{"cloud", "based", "ai", "driven"}},
		{"digits kept", "Q3 revenue rose 12%", []string{"q3", "revenue", "rose", "12"}},
		{"repeats kept", "margin margin", []string{"margin", "margin"}},
		{"only stop words", "what is the", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"cloud", "revenue"}, Terms("Cloud revenue, cloud REVENUE"))
	assert.Empty(t, Terms("   "))
}

func TestTermFrequencies(t *testing.T) {
	tf, n := TermFrequencies("Services revenue and services margin")
	assert.Equal(t, 4, n)
	assert.Equal(t, map[string]int{"services": 2, "revenue": 1, "margin": 1}, tf)
}

func TestContainsAllTerms(t *testing.T) {
	doc := "Microsoft reported strong cloud revenue growth in Q3 2025."
	assert.True(t, ContainsAllTerms(doc, "cloud revenue"))
	assert.False(t, ContainsAllTerms(doc, "cloud margin"))
	assert.False(t, ContainsAllTerms(doc, "the of"))
}

func TestBM25(t *testing.T) {
	p := DefaultBM25()

	assert.Zero(t, p.IDF(0, 10))
	assert.Greater(t, p.IDF(1, 10), p.IDF(5, 10), "rarer terms weigh more")
	assert.GreaterOrEqual(t, p.IDF(10, 10), 0.0)

	short := p.Score(2, 10, 20, 1, 10)
	long := p.Score(2, 40, 20, 1, 10)
	assert.Greater(t, short, long, "shorter documents rank higher for equal tf")

	assert.Greater(t, p.Score(3, 20, 20, 1, 10), p.Score(1, 20, 20, 1, 10))
	assert.Zero(t, p.Score(0, 20, 20, 1, 10))
}

func TestSnippet_HighlightsMatches(t *testing.T) {
	text := "Microsoft reported strong cloud revenue growth in Q3 2025."
	got := Snippet(text, Terms("cloud revenue"), DefaultSnippetOptions())
	assert.Equal(t, "Microsoft reported strong <mark>cloud</mark> <mark>revenue</mark> growth in Q3 2025.", got)
}

func TestSnippet_NoMatchReturnsLead(t *testing.T) {
	text := strings.Repeat("word ", 50)
	got := Snippet(text, []string{"absent"}, SnippetOptions{MaxWords: 5})
	assert.Equal(t, "word word word word word", got)
}

func TestSnippet_TwoFragments(t *testing.T) {
	fields := make([]string, 100)
	for i := range fields {
		fields[i] = "filler"
	}
	fields[10] = "guidance"
	fields[80] = "guidance"
	got := Snippet(strings.Join(fields, " "), []string{"guidance"}, SnippetOptions{MaxFragments: 2, MaxWords: 9})

	parts := strings.Split(got, FragmentDelimiter)
	assert.Len(t, parts, 2)
	for _, p := range parts {
		assert.Contains(t, p, "<mark>guidance</mark>")
		assert.Len(t, strings.Fields(p), 9)
	}
}

func TestSnippet_Empty(t *testing.T) {
	assert.Equal(t, "", Snippet("", []string{"x"}, DefaultSnippetOptions()))
}
