package search

import (
	"time"

	"github.com/poiesic/earningsrag/core"
)

// Monitor provides hooks to observe retrieval.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(question string)
	// AfterLexicalPrefilter reports the transcripts kept by the full-text prefilter.
	AfterLexicalPrefilter(candidates int)
	// AfterFilters reports the transcripts left after the year, quarter and
	// company filters.
	AfterFilters(transcripts int)
	AfterSimilaritySearch(hits []core.ScoredChunk)
	Finish(results []core.ScoredChunk, elapsed time.Duration)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = noopMonitor{}

func (noopMonitor) Start(string) {}
func (noopMonitor) AfterLexicalPrefilter(int) {}
func (noopMonitor) AfterFilters(int) {}
func (noopMonitor) AfterSimilaritySearch([]core.ScoredChunk) {}
func (noopMonitor) Finish([]core.ScoredChunk, time.Duration) {}
