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

	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

const (
	// DefaultBatchSize is the default number of chunks to fetch in each batch
	DefaultBatchSize = 64
)

// MissingIterator pages through chunks that have no embedding, in key order.
type MissingIterator struct {
	store     storage.ChunkRepository
	batchSize int
}

// NewMissingIterator creates an iterator.
// batchSize: number of chunks to fetch in each batch (<= 0 selects DefaultBatchSize)
func NewMissingIterator(store storage.ChunkRepository, batchSize int) *MissingIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &MissingIterator{store: store, batchSize: batchSize}
}

// ForEach calls fn with successive batches of chunks missing embeddings.
// Each page starts strictly after the last key of the previous one, so
// chunks fn embeds are never revisited and chunks it skips are not fetched
// twice. Iteration stops on the first error from fn. Context cancellation is
// checked between batches.
func (it *MissingIterator) ForEach(ctx context.Context, fn func([]*core.ChunkRecord) error) error {
	var after *core.ChunkKey
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.store.ChunksMissingEmbeddings(ctx, after, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		last := batch[len(batch)-1].Key()
		after = &last
		if len(batch) < it.batchSize {
			return nil
		}
	}
}

// Count returns the number of chunks missing embeddings.
func (it *MissingIterator) Count(ctx context.Context) (int, error) {
	total := 0
	err := it.ForEach(ctx, func(batch []*core.ChunkRecord) error {
		total += len(batch)
		return nil
	})
	return total, err
}
