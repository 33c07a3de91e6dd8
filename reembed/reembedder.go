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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to embed per model call
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns the default batch and retry settings.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: DefaultBatchSize,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Stats summarizes a run.
type Stats struct {
	Missing  int
	Embedded int
	Batches  int
	Elapsed  time.Duration
}

// Reembedder embeds every stored chunk that has no vector.
type Reembedder struct {
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	processor *BatchProcessor
	iterator  *MissingIterator
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr, nil for none)
func NewReembedder(store storage.ChunkRepository, cache ChunkEmbedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		config:    config,
		progress:  progress,
		logger:    slog.Default(),
		processor: NewBatchProcessor(cache, config.MaxRetries, config.RetryDelay),
		iterator:  NewMissingIterator(store, config.BatchSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reembedder")
	return r, nil
}

// Run embeds all chunks missing a vector. A batch that still fails after
// its retries stops the run; batches embedded before it stay stored.
func (r *Reembedder) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	missing, err := r.iterator.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("counting chunks without embeddings: %w", err)
	}
	stats.Missing = missing
	if missing == 0 {
		fmt.Fprintf(r.progress, "All chunks have embeddings\n")
		return stats, nil
	}

	r.logger.Info("reembedding chunks", "missing", missing, "batch_size", r.iterator.batchSize)
	fmt.Fprintf(r.progress, "Embedding %d chunks (batch size: %d)\n", missing, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, missing, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(batch []*core.ChunkRecord) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return err
		}
		stats.Batches++
		stats.Embedded += len(batch)
		tracker.Increment(len(batch))
		return nil
	})
	tracker.Finish()
	stats.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("reembedding stopped", "embedded", stats.Embedded, "missing", missing, "error", err)
		return stats, err
	}

	r.logger.Info("reembedding complete", "embedded", stats.Embedded, "batches", stats.Batches,
		"elapsed", stats.Elapsed)
	fmt.Fprintf(r.progress, "Reembedding complete. Embedded %d chunks in %v\n",
		stats.Embedded, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}
