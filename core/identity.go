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


package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
)

// chunkNamespace is the UUIDv5 namespace all chunk IDs are derived in.
// Changing it changes every chunk ID and breaks idempotent re-ingestion.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("trendtrackerHimanshu.transcript_chunk"))

// ChunkNamespace returns the namespace used by ChunkID.
func ChunkNamespace() uuid.UUID {
	return chunkNamespace
}

// ChunkHash returns the hex SHA-256 of "transcriptID:chunkIndex:text".
func ChunkHash(transcriptID uuid.UUID, chunkIndex int, text string) string {
	payload := transcriptID.String() + ":" + strconv.Itoa(chunkIndex) + ":" + text
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// ChunkID derives the stable chunk identifier from a chunk hash.
func ChunkID(chunkHash string) uuid.UUID {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkHash))
}

// NewChunk stamps identity onto a chunk payload.
func NewChunk(transcriptID, companyID uuid.UUID, chunkIndex int, data ChunkData) Chunk {
	hash := ChunkHash(transcriptID, chunkIndex, data.Text())
	return Chunk{
		TranscriptID: transcriptID,
		CompanyID:    companyID,
		ChunkID:      ChunkID(hash),
		ChunkHash:    hash,
		ChunkIndex:   chunkIndex,
		Data:         data,
	}
}

// ContentHash returns the hex SHA-256 of a transcript's raw text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
