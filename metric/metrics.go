// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package metric records ingestion and retrieval activity as Prometheus
// metrics.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/ingestion"
	"github.com/poiesic/earningsrag/search"
	"github.com/poiesic/earningsrag/storage"
)

const namespace = "earningsrag"

// Metrics implements ingestion.Observer and search.Monitor.
type Metrics struct {
	registry *prometheus.Registry

	transcriptsIngested prometheus.Counter
	chunksStored        prometheus.Counter
	ingestFailures      *prometheus.CounterVec
	ingestDuration      prometheus.Histogram

	embeddingsStored  *prometheus.CounterVec
	textsEmbedded     prometheus.Counter
	embeddingDuration prometheus.Histogram

	retrievals          prometheus.Counter
	lexicalCandidates   prometheus.Histogram
	filteredTranscripts prometheus.Histogram
	retrievedChunks     prometheus.Histogram
	topScore            prometheus.Histogram
	retrievalDuration   prometheus.Histogram
}

var (
	_ ingestion.Observer = (*Metrics)(nil)
	_ search.Monitor     = (*Metrics)(nil)
)

// New creates the metrics and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		transcriptsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "transcripts_total",
			Help: "Transcripts stored by the ingestion pipeline",
		}),
		chunksStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "chunks_total",
			Help: "Chunks built from ingested transcripts",
		}),
		ingestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "failures_total",
			Help: "Failed ingestion requests by pipeline stage and error class",
		}, []string{"stage", "class"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ingestion", Name: "duration_seconds",
			Help:    "Time to ingest one transcript",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),

		embeddingsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "embedding", Name: "chunks_total",
			Help: "Chunk rows written by embedding upserts by outcome",
		}, []string{"outcome"}),
		textsEmbedded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "embedding", Name: "texts_total",
			Help: "Texts sent to the embedding model",
		}),
		embeddingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "embedding", Name: "duration_seconds",
			Help:    "Time to embed and store one batch of chunks",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		retrievals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "retrieval", Name: "queries_total",
			Help: "Retrieval queries started",
		}),
		lexicalCandidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "retrieval", Name: "lexical_candidates",
			Help:    "Transcripts kept by the full-text prefilter",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		filteredTranscripts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "retrieval", Name: "filtered_transcripts",
			Help:    "Transcripts left after metadata filters",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		retrievedChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "retrieval", Name: "results",
			Help:    "Chunks returned per query",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		topScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "retrieval", Name: "top_score",
			Help:    "Best cosine similarity per query before the score floor",
			Buckets: prometheus.LinearBuckets(-0.2, 0.1, 13),
		}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "retrieval", Name: "duration_seconds",
			Help:    "Time to answer a retrieval query",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.transcriptsIngested, m.chunksStored, m.ingestFailures, m.ingestDuration,
		m.embeddingsStored, m.textsEmbedded, m.embeddingDuration,
		m.retrievals, m.lexicalCandidates, m.filteredTranscripts,
		m.retrievedChunks, m.topScore, m.retrievalDuration,
	)
	return m
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TranscriptIngested implements ingestion.Observer.
func (m *Metrics) TranscriptIngested(_ string, chunks int, elapsed time.Duration) {
	m.transcriptsIngested.Inc()
	m.chunksStored.Add(float64(chunks))
	m.ingestDuration.Observe(elapsed.Seconds())
}

// IngestFailed implements ingestion.Observer.
func (m *Metrics) IngestFailed(stage string, err error) {
	m.ingestFailures.WithLabelValues(stage, core.Classify(err).String()).Inc()
}

// ChunksEmbedded implements ingestion.Observer.
func (m *Metrics) ChunksEmbedded(result storage.UpsertResult, embedded int, elapsed time.Duration) {
	m.embeddingsStored.WithLabelValues("inserted").Add(float64(result.Inserted))
	m.embeddingsStored.WithLabelValues("filled").Add(float64(result.Filled))
	m.embeddingsStored.WithLabelValues("skipped").Add(float64(result.Skipped))
	m.textsEmbedded.Add(float64(embedded))
	m.embeddingDuration.Observe(elapsed.Seconds())
}

// Start implements search.Monitor.
func (m *Metrics) Start(string) {
	m.retrievals.Inc()
}

// AfterLexicalPrefilter implements search.Monitor.
func (m *Metrics) AfterLexicalPrefilter(candidates int) {
	m.lexicalCandidates.Observe(float64(candidates))
}

// AfterFilters implements search.Monitor.
func (m *Metrics) AfterFilters(transcripts int) {
	m.filteredTranscripts.Observe(float64(transcripts))
}

// AfterSimilaritySearch implements search.Monitor. Hits arrive best first.
func (m *Metrics) AfterSimilaritySearch(hits []core.ScoredChunk) {
	if len(hits) > 0 {
		m.topScore.Observe(float64(hits[0].Score))
	}
}

// Finish implements search.Monitor.
func (m *Metrics) Finish(results []core.ScoredChunk, elapsed time.Duration) {
	m.retrievedChunks.Observe(float64(len(results)))
	m.retrievalDuration.Observe(elapsed.Seconds())
}
