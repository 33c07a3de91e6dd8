package badger

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/poiesic/earningsrag/core"
)

// Key prefixes for different data types. Every prefix ends with a separator
// so that prefix scans never match a neighbouring type.
const (
	companyRecordPrefix     = "comrec:"
	companyTickerPrefix     = "comtic:"
	transcriptRecordPrefix  = "trarec:"
	transcriptPeriodPrefix  = "traper:"
	transcriptHashPrefix    = "trahsh:"
	orgEntityPrefix         = "orgent:"
	chunkRecordPrefix       = "chkrec:"
	chunkVectorPrefix       = "chkvec:"
	fulltextPostingPrefix   = "ftspst:"
	fulltextDocLengthPrefix = "ftsdln:"
)

func concat(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// makeCompanyKey generates a key for a company by ID.
func makeCompanyKey(id uuid.UUID) []byte {
	return concat(companyRecordPrefix, id[:])
}

// makeCompanyTickerKey generates the unique index key for (ticker, exchange).
// Format: prefix:TICKER\x00EXCHANGE
func makeCompanyTickerKey(ticker, exchange string) []byte {
	return concat(companyTickerPrefix, []byte(core.NormalizeTicker(ticker)), []byte{0}, []byte(exchange))
}

// makeTranscriptKey generates a key for a transcript by ID.
func makeTranscriptKey(id uuid.UUID) []byte {
	return concat(transcriptRecordPrefix, id[:])
}

// makeTranscriptPeriodKey generates the unique index key for a company's
// fiscal period. Year and quarter are written in BigEndian order so that a
// prefix scan over a company returns its periods in chronological order.
// Format: prefix:companyID:year:quarter
func makeTranscriptPeriodKey(companyID uuid.UUID, year, quarter int) []byte {
	var period [5]byte
	binary.BigEndian.PutUint32(period[:4], uint32(year))
	period[4] = byte(quarter)
	return concat(transcriptPeriodPrefix, companyID[:], period[:])
}

// makePartialTranscriptPeriodKey generates a partial key for per-company scans.
func makePartialTranscriptPeriodKey(companyID uuid.UUID) []byte {
	return concat(transcriptPeriodPrefix, companyID[:])
}

// makeTranscriptHashKey generates the unique index key for a company's
// transcript content hash.
func makeTranscriptHashKey(companyID uuid.UUID, contentHash string) []byte {
	return concat(transcriptHashPrefix, companyID[:], []byte(contentHash))
}

// makeOrgEntityKey generates a key for an organization mention row.
// Format: prefix:transcriptID:name
func makeOrgEntityKey(transcriptID uuid.UUID, name string) []byte {
	return concat(orgEntityPrefix, transcriptID[:], []byte(name))
}

func makePartialOrgEntityKey(transcriptID uuid.UUID) []byte {
	return concat(orgEntityPrefix, transcriptID[:])
}

// makeChunkKey generates a key for a chunk payload.
// Format: prefix:transcriptID:chunkID
func makeChunkKey(key core.ChunkKey) []byte {
	return concat(chunkRecordPrefix, key.TranscriptID[:], key.ChunkID[:])
}

func makePartialChunkKey(transcriptID uuid.UUID) []byte {
	return concat(chunkRecordPrefix, transcriptID[:])
}

// makeVectorKey generates a key for a chunk embedding.
func makeVectorKey(key core.ChunkKey) []byte {
	return concat(chunkVectorPrefix, key.TranscriptID[:], key.ChunkID[:])
}

// parseChunkKey recovers the chunk key from a chunk or vector key.
func parseChunkKey(prefix string, key []byte) (core.ChunkKey, bool) {
	rest := key[len(prefix):]
	if len(rest) != 32 {
		return core.ChunkKey{}, false
	}
	var ck core.ChunkKey
	copy(ck.TranscriptID[:], rest[:16])
	copy(ck.ChunkID[:], rest[16:])
	return ck, true
}

// makePostingKey generates a composite key for the inverted index.
// Format: prefix:termID:transcriptID, value is the term frequency.
func makePostingKey(termID core.ID, transcriptID uuid.UUID) []byte {
	var term [8]byte
	binary.BigEndian.PutUint64(term[:], uint64(termID))
	return concat(fulltextPostingPrefix, term[:], transcriptID[:])
}

// makePartialPostingKey generates a partial key for term lookups.
func makePartialPostingKey(termID core.ID) []byte {
	var term [8]byte
	binary.BigEndian.PutUint64(term[:], uint64(termID))
	return concat(fulltextPostingPrefix, term[:])
}

// makeDocLengthKey generates the key holding a transcript's token count.
func makeDocLengthKey(transcriptID uuid.UUID) []byte {
	return concat(fulltextDocLengthPrefix, transcriptID[:])
}

func marshalCount(n int) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(n))
	return buf[:]
}

func unmarshalCount(data []byte) int {
	if len(data) < 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(data))
}

func uuidFromTail(key []byte) uuid.UUID {
	var id uuid.UUID
	copy(id[:], key[len(key)-16:])
	return id
}
