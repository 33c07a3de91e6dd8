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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/earningsrag/core"
)

// MUS serializers for the records kept by key-value backends. Field order is
// the wire order; append new fields at the end of a record.
var (
	CompanyMUS     = companyMUS{}
	TranscriptMUS  = transcriptMUS{}
	OrgEntityMUS   = orgEntityMUS{}
	ChunkRecordMUS = chunkRecordMUS{}
)

// Times are stored as Unix microseconds. Zero encodes the zero time.

func sizeTime(t time.Time) int {
	return varint.Int64.Size(unixMicro(t))
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(unixMicro(t), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || v == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func sizeUUID(id uuid.UUID) int {
	return ord.ByteSlice.Size(id[:])
}

func marshalUUID(id uuid.UUID, bs []byte) int {
	return ord.ByteSlice.Marshal(id[:], bs)
}

func unmarshalUUID(bs []byte) (uuid.UUID, int, error) {
	raw, n, err := ord.ByteSlice.Unmarshal(bs)
	if err != nil {
		return uuid.Nil, n, err
	}
	id, err := uuid.FromBytes(raw)
	return id, n, err
}

// unmarshalLen reads a collection length and rejects values the remaining
// bytes cannot hold.
func unmarshalLen(bs []byte) (int, int, error) {
	l, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	if l < 0 || l > len(bs)-n {
		return 0, n, fmt.Errorf("%w: length %d", ErrTruncatedData, l)
	}
	return l, n, nil
}

type companyMUS struct{}

func (s companyMUS) Marshal(v core.Company, bs []byte) (n int) {
	n = marshalUUID(v.ID, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Ticker, bs[n:])
	n += ord.String.Marshal(v.ExchangeCode, bs[n:])
	n += ord.String.Marshal(v.SecurityType, bs[n:])
	n += ord.String.Marshal(v.MarketSector, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return
}

func (s companyMUS) Unmarshal(bs []byte) (v core.Company, n int, err error) {
	var n1 int
	if v.ID, n, err = unmarshalUUID(bs); err != nil {
		return
	}
	for _, field := range []*string{&v.Name, &v.Ticker, &v.ExchangeCode, &v.SecurityType, &v.MarketSector} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s companyMUS) Size(v core.Company) (size int) {
	size = sizeUUID(v.ID)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.Ticker)
	size += ord.String.Size(v.ExchangeCode)
	size += ord.String.Size(v.SecurityType)
	size += ord.String.Size(v.MarketSector)
	return size + sizeTime(v.CreatedAt)
}

// paragraphMUS writes the speaker as a presence flag followed by the name.
type paragraphMUS struct{}

func (s paragraphMUS) Marshal(v core.Paragraph, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Number, bs)
	n += ord.Bool.Marshal(v.Speaker != nil, bs[n:])
	if v.Speaker != nil {
		n += ord.String.Marshal(*v.Speaker, bs[n:])
	}
	n += ord.String.Marshal(v.Content, bs[n:])
	return
}

func (s paragraphMUS) Unmarshal(bs []byte) (v core.Paragraph, n int, err error) {
	var (
		n1         int
		hasSpeaker bool
	)
	if v.Number, n, err = varint.Int.Unmarshal(bs); err != nil {
		return
	}
	hasSpeaker, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if hasSpeaker {
		var speaker string
		speaker, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v.Speaker = &speaker
	}
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s paragraphMUS) Size(v core.Paragraph) (size int) {
	size = varint.Int.Size(v.Number) + ord.Bool.Size(v.Speaker != nil)
	if v.Speaker != nil {
		size += ord.String.Size(*v.Speaker)
	}
	return size + ord.String.Size(v.Content)
}

type transcriptMUS struct{}

func (s transcriptMUS) Marshal(v core.Transcript, bs []byte) (n int) {
	n = marshalUUID(v.ID, bs)
	n += marshalUUID(v.CompanyID, bs[n:])
	n += varint.Int.Marshal(v.FiscalYear, bs[n:])
	n += varint.Int.Marshal(v.FiscalQuarter, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += ord.String.Marshal(v.RawText, bs[n:])
	n += varint.Int.Marshal(len(v.Paragraphs), bs[n:])
	for _, p := range v.Paragraphs {
		n += paragraphMUS{}.Marshal(p, bs[n:])
	}
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Int.Marshal(v.OrgData.UniqueCount, bs[n:])
	n += varint.Int.Marshal(len(v.OrgData.Frequencies), bs[n:])
	for _, f := range v.OrgData.Frequencies {
		n += ord.String.Marshal(f.Name, bs[n:])
		n += varint.Int.Marshal(f.Count, bs[n:])
	}
	n += varint.Int.Marshal(v.DocumentMeta.CharCount, bs[n:])
	n += varint.Int.Marshal(v.DocumentMeta.WordCount, bs[n:])
	n += varint.Int.Marshal(v.DocumentMeta.SentenceCount, bs[n:])
	n += marshalTime(v.FetchedAt, bs[n:])
	n += marshalTime(v.PreprocessedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return
}

func (s transcriptMUS) Unmarshal(bs []byte) (v core.Transcript, n int, err error) {
	var n1, count int
	if v.ID, n, err = unmarshalUUID(bs); err != nil {
		return
	}
	v.CompanyID, n1, err = unmarshalUUID(bs[n:])
	n += n1
	if err != nil {
		return
	}
	for _, field := range []*int{&v.FiscalYear, &v.FiscalQuarter} {
		*field, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for _, field := range []*string{&v.Source, &v.SourceURL, &v.RawText} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}

	count, n1, err = unmarshalLen(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.Paragraphs = make([]core.Paragraph, count)
	}
	for i := range v.Paragraphs {
		v.Paragraphs[i], n1, err = paragraphMUS{}.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}

	v.ContentHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.OrgData.UniqueCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	count, n1, err = unmarshalLen(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.OrgData.Frequencies = make([]core.OrgFrequency, count)
	}
	for i := range v.OrgData.Frequencies {
		f := &v.OrgData.Frequencies[i]
		f.Name, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		f.Count, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}

	meta := &v.DocumentMeta
	for _, field := range []*int{&meta.CharCount, &meta.WordCount, &meta.SentenceCount} {
		*field, n1, err = varint.Int.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for _, field := range []*time.Time{&v.FetchedAt, &v.PreprocessedAt, &v.UpdatedAt} {
		*field, n1, err = unmarshalTime(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s transcriptMUS) Size(v core.Transcript) (size int) {
	size = sizeUUID(v.ID) + sizeUUID(v.CompanyID)
	size += varint.Int.Size(v.FiscalYear) + varint.Int.Size(v.FiscalQuarter)
	size += ord.String.Size(v.Source) + ord.String.Size(v.SourceURL) + ord.String.Size(v.RawText)
	size += varint.Int.Size(len(v.Paragraphs))
	for _, p := range v.Paragraphs {
		size += paragraphMUS{}.Size(p)
	}
	size += ord.String.Size(v.ContentHash)
	size += varint.Int.Size(v.OrgData.UniqueCount)
	size += varint.Int.Size(len(v.OrgData.Frequencies))
	for _, f := range v.OrgData.Frequencies {
		size += ord.String.Size(f.Name) + varint.Int.Size(f.Count)
	}
	size += varint.Int.Size(v.DocumentMeta.CharCount)
	size += varint.Int.Size(v.DocumentMeta.WordCount)
	size += varint.Int.Size(v.DocumentMeta.SentenceCount)
	return size + sizeTime(v.FetchedAt) + sizeTime(v.PreprocessedAt) + sizeTime(v.UpdatedAt)
}

type orgEntityMUS struct{}

func (s orgEntityMUS) Marshal(v core.OrgEntity, bs []byte) (n int) {
	n = marshalUUID(v.TranscriptID, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += varint.Int.Marshal(v.MentionCount, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	return
}

func (s orgEntityMUS) Unmarshal(bs []byte) (v core.OrgEntity, n int, err error) {
	var n1 int
	if v.TranscriptID, n, err = unmarshalUUID(bs); err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.MentionCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s orgEntityMUS) Size(v core.OrgEntity) (size int) {
	size = sizeUUID(v.TranscriptID) + ord.String.Size(v.Name)
	return size + varint.Int.Size(v.MentionCount) + sizeTime(v.CreatedAt)
}

// chunkRecordMUS carries the free-form chunk payload as opaque JSON bytes.
// The embedding is not part of the record.
type chunkRecordMUS struct{}

// chunkRow is a chunk record with its payload already encoded.
type chunkRow struct {
	record *core.ChunkRecord
	data   []byte
}

func newChunkRow(record *core.ChunkRecord) (chunkRow, error) {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return chunkRow{}, fmt.Errorf("%w: chunk data: %w", ErrSerializationFailed, err)
	}
	return chunkRow{record: record, data: data}, nil
}

func (s chunkRecordMUS) Marshal(v chunkRow, bs []byte) (n int) {
	r := v.record
	n = marshalUUID(r.TranscriptID, bs)
	n += marshalUUID(r.CompanyID, bs[n:])
	n += marshalUUID(r.ChunkID, bs[n:])
	n += ord.String.Marshal(r.ChunkHash, bs[n:])
	n += varint.Int.Marshal(r.ChunkIndex, bs[n:])
	n += ord.ByteSlice.Marshal(v.data, bs[n:])
	n += ord.String.Marshal(r.EmbeddingModel, bs[n:])
	n += marshalTime(r.UpdatedAt, bs[n:])
	return
}

func (s chunkRecordMUS) Unmarshal(bs []byte) (v core.ChunkRecord, n int, err error) {
	var (
		n1   int
		data []byte
	)
	if v.TranscriptID, n, err = unmarshalUUID(bs); err != nil {
		return
	}
	for _, field := range []*uuid.UUID{&v.CompanyID, &v.ChunkID} {
		*field, n1, err = unmarshalUUID(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.ChunkHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ChunkIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	data, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if err = json.Unmarshal(data, &v.Data); err != nil {
		return
	}
	v.EmbeddingModel, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (s chunkRecordMUS) Size(v chunkRow) (size int) {
	r := v.record
	size = sizeUUID(r.TranscriptID) + sizeUUID(r.CompanyID) + sizeUUID(r.ChunkID)
	size += ord.String.Size(r.ChunkHash) + varint.Int.Size(r.ChunkIndex)
	size += ord.ByteSlice.Size(v.data)
	return size + ord.String.Size(r.EmbeddingModel) + sizeTime(r.UpdatedAt)
}
