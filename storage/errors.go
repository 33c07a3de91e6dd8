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


package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/earningsrag/core"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = fmt.Errorf("record %w", core.ErrNotFound)

	// ErrConflict indicates a write violated a uniqueness constraint.
	ErrConflict = fmt.Errorf("storage: %w", core.ErrConflict)

	// ErrDuplicatePeriod indicates the company already has a transcript for the fiscal period.
	ErrDuplicatePeriod = fmt.Errorf("%w: transcript already exists for fiscal period", ErrConflict)

	// ErrDuplicateContent indicates a transcript with the same content hash is already stored.
	ErrDuplicateContent = fmt.Errorf("%w: transcript content already stored", ErrConflict)

	// ErrTransactionFailed indicates that a transaction failed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = fmt.Errorf("%w: invalid query parameters", core.ErrInvalid)

	// ErrDimensionMismatch indicates a stored embedding has a different
	// dimension than the query vector, usually after the embedding model
	// changed without re-embedding the store.
	ErrDimensionMismatch = fmt.Errorf("storage: %w: stored embedding dimension differs from query", core.ErrConfiguration)

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
