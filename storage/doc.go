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


// Package storage provides the storage abstraction layer for earningsrag.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. Two backends implement them: storage/badger (embedded
// key-value store, the default) and storage/sqlite (SQLite with FTS5).
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Repository interface:
//
//	repo, err := badger.NewRepository(path)  // returns storage.Repository
//	repo, err := sqlite.NewRepository(path)  // returns storage.Repository
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: Main interface combining all storage operations
//   - CompanyRepository: Issuers, unique per ticker and exchange
//   - TranscriptRepository: Transcripts, organization mentions and full-text search
//   - ChunkRepository: Chunks, fill-missing-only embedding upserts and vector search
//   - TransactionManager: Context-scoped transactions
//
// # Transactions
//
// WithTransaction stores the open transaction in the context handed to the
// callback. Every repository method called with that context joins it:
//
//	err := repo.WithTransaction(ctx, func(ctx context.Context) error {
//	    if _, err := repo.AddTranscript(ctx, t, orgs); err != nil {
//	        return err
//	    }
//	    _, err := repo.UpsertChunks(ctx, records)
//	    return err
//	})
//
// Methods called outside a transaction run in their own.
//
// # Errors
//
// Lookups of missing records return ErrNotFound. Uniqueness violations
// return errors wrapping ErrConflict. Both wrap the core error classes so
// callers can use core.Classify.
//
// # Conformance
//
// storage/storagetest holds a testify suite that every backend runs.
package storage
