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


package ingestion

import (
	"errors"
	"fmt"

	"github.com/poiesic/earningsrag/core"
	"github.com/poiesic/earningsrag/storage"
)

var (
	// ErrRepositoryRequired is returned when a repository is not provided.
	ErrRepositoryRequired = errors.New("repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrResolverRequired is returned when a company resolver is not provided.
	ErrResolverRequired = errors.New("company resolver required")

	// ErrSourceRequired is returned when a transcript source is not provided.
	ErrSourceRequired = errors.New("transcript source required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrTranscriptExists is returned when the requested period is already stored.
	ErrTranscriptExists = fmt.Errorf("ingestion: %w", storage.ErrDuplicatePeriod)

	// ErrInvalidRequest is returned for requests without a company or with an
	// out-of-range fiscal period.
	ErrInvalidRequest = fmt.Errorf("ingestion: %w: invalid request", core.ErrInvalid)
)
