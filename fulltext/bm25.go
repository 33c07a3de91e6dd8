package fulltext

import "math"

// BM25 holds the ranking parameters.
type BM25 struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization.
	B float64
}

// DefaultBM25 returns the standard parameters k1=1.2, b=0.75.
func DefaultBM25() BM25 {
	return BM25{K1: 1.2, B: 0.75}
}

// IDF returns the smoothed inverse document frequency of a term found in
// docFreq of docCount documents. It is never negative.
func (p BM25) IDF(docFreq, docCount int) float64 {
	if docCount <= 0 || docFreq <= 0 {
		return 0
	}
	n := float64(docCount)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// Score returns the contribution of one term to a document's score.
func (p BM25) Score(termFreq, docLen int, avgDocLen float64, docFreq, docCount int) float64 {
	if termFreq <= 0 {
		return 0
	}
	tf := float64(termFreq)
	norm := 1.0
	if avgDocLen > 0 {
		norm = 1 - p.B + p.B*float64(docLen)/avgDocLen
	}
	return p.IDF(docFreq, docCount) * tf * (p.K1 + 1) / (tf + p.K1*norm)
}
