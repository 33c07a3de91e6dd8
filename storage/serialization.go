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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/poiesic/earningsrag/core"
)

// MarshalVector serializes an embedding as little-endian float32 values.
func MarshalVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// UnmarshalVector deserializes an embedding written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: vector of %d bytes", ErrTruncatedData, len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}

// MarshalChunkRecord serializes a chunk record without its embedding.
// Embeddings are stored separately with MarshalVector.
func MarshalChunkRecord(record *core.ChunkRecord) ([]byte, error) {
	row, err := newChunkRow(record)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, ChunkRecordMUS.Size(row))
	ChunkRecordMUS.Marshal(row, buf)
	return buf, nil
}

// UnmarshalChunkRecord deserializes a chunk record written by MarshalChunkRecord.
func UnmarshalChunkRecord(data []byte) (*core.ChunkRecord, error) {
	record, _, err := ChunkRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalChunkData serializes a chunk payload as a JSON document.
func MarshalChunkData(data core.ChunkData) ([]byte, error) {
	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return out, nil
}

// UnmarshalChunkData deserializes a chunk payload written by MarshalChunkData.
func UnmarshalChunkData(data []byte) (core.ChunkData, error) {
	var out core.ChunkData
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return out, nil
}

// MarshalTranscript serializes a Transcript to bytes.
func MarshalTranscript(t *core.Transcript) []byte {
	buf := make([]byte, TranscriptMUS.Size(*t))
	TranscriptMUS.Marshal(*t, buf)
	return buf
}

// UnmarshalTranscript deserializes a Transcript from bytes.
func UnmarshalTranscript(data []byte) (*core.Transcript, error) {
	t, _, err := TranscriptMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: transcript: %w", ErrSerializationFailed, err)
	}
	return &t, nil
}

// MarshalCompany serializes a Company to bytes.
func MarshalCompany(c *core.Company) []byte {
	buf := make([]byte, CompanyMUS.Size(*c))
	CompanyMUS.Marshal(*c, buf)
	return buf
}

// UnmarshalCompany deserializes a Company from bytes.
func UnmarshalCompany(data []byte) (*core.Company, error) {
	c, _, err := CompanyMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: company: %w", ErrSerializationFailed, err)
	}
	return &c, nil
}

// MarshalOrgEntity serializes an OrgEntity to bytes.
func MarshalOrgEntity(e *core.OrgEntity) []byte {
	buf := make([]byte, OrgEntityMUS.Size(*e))
	OrgEntityMUS.Marshal(*e, buf)
	return buf
}

// UnmarshalOrgEntity deserializes an OrgEntity from bytes.
func UnmarshalOrgEntity(data []byte) (*core.OrgEntity, error) {
	e, _, err := OrgEntityMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: org entity: %w", ErrSerializationFailed, err)
	}
	return &e, nil
}
