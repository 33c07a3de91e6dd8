package core

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	edgePunctuation = regexp.MustCompile(`^[^\w]+|[^\w]+$`)
	runsOfSpace     = regexp.MustCompile(`\s+`)
)

var corporateSuffixes = map[string]bool{
	"inc": true, "inc.": true,
	"corp": true, "corp.": true,
	"ltd": true, "ltd.": true,
	"llc": true, "plc": true,
	"co": true, "co.": true,
}

// NormalizeOrgName canonicalizes an organization mention: lower case, edge
// punctuation trimmed, whitespace collapsed and trailing corporate suffixes removed.
func NormalizeOrgName(name string) string {
	x := strings.ToLower(strings.TrimSpace(name))
	x = edgePunctuation.ReplaceAllString(x, "")
	x = runsOfSpace.ReplaceAllString(x, " ")
	parts := strings.Split(x, " ")
	for len(parts) > 0 && corporateSuffixes[parts[len(parts)-1]] {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, " ")
}

// CountOrgMentions normalizes and counts mentions. The result is ordered by
// count descending; ties keep first-seen order. Blank names are dropped.
func CountOrgMentions(mentions []string) OrgData {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, m := range mentions {
		if strings.TrimSpace(m) == "" {
			continue
		}
		name := NormalizeOrgName(m)
		if name == "" {
			continue
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}

	freqs := make([]OrgFrequency, 0, len(order))
	for _, name := range order {
		freqs = append(freqs, OrgFrequency{Name: name, Count: counts[name]})
	}
	slices.SortStableFunc(freqs, func(a, b OrgFrequency) int {
		return b.Count - a.Count
	})

	return OrgData{UniqueCount: len(freqs), Frequencies: freqs}
}

// OrgEntities expands aggregated org data into per-transcript rows.
func OrgEntities(transcriptID uuid.UUID, data OrgData, createdAt time.Time) []OrgEntity {
	entities := make([]OrgEntity, 0, len(data.Frequencies))
	for _, f := range data.Frequencies {
		entities = append(entities, OrgEntity{
			TranscriptID: transcriptID,
			Name:         f.Name,
			MentionCount: f.Count,
			CreatedAt:    createdAt,
		})
	}
	return entities
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
