package fulltext

import "strings"

// Highlight markers and the fragment separator used in snippets.
const (
	MarkStart         = "<mark>"
	MarkEnd           = "</mark>"
	FragmentDelimiter = " … "
)

// SnippetOptions bounds snippet size.
type SnippetOptions struct {
	MaxFragments int
	MaxWords     int
}

// DefaultSnippetOptions returns two fragments of at most 35 words.
func DefaultSnippetOptions() SnippetOptions {
	return SnippetOptions{MaxFragments: 2, MaxWords: 35}
}

// Snippet returns up to MaxFragments windows of text around words matching
// terms, with every match wrapped in MarkStart/MarkEnd. Without any match the
// leading MaxWords words are returned.
func Snippet(text string, terms []string, opts SnippetOptions) string {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultSnippetOptions().MaxWords
	}
	if opts.MaxFragments <= 0 {
		opts.MaxFragments = 1
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	matched := make([]bool, len(fields))
	var hits []int
	for i, f := range fields {
		for _, w := range words(f) {
			if want[w] {
				matched[i] = true
				hits = append(hits, i)
				break
			}
		}
	}

	if len(hits) == 0 {
		end := min(len(fields), opts.MaxWords)
		return render(fields[:end], matched[:end])
	}

	var fragments []string
	covered := -1
	for _, h := range hits {
		if len(fragments) == opts.MaxFragments {
			break
		}
		if h < covered {
			continue
		}
		start := max(0, h-opts.MaxWords/3)
		if start < covered {
			start = covered
		}
		end := min(len(fields), start+opts.MaxWords)
		fragments = append(fragments, render(fields[start:end], matched[start:end]))
		covered = end
	}
	return strings.Join(fragments, FragmentDelimiter)
}

func render(fields []string, matched []bool) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		if matched[i] {
			b.WriteString(MarkStart)
			b.WriteString(f)
			b.WriteString(MarkEnd)
		} else {
			b.WriteString(f)
		}
	}
	return b.String()
}
