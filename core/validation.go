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
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MinFiscalYear is the earliest fiscal year transcripts are available for.
const MinFiscalYear = 2006

// ValidateCompany validates a Company according to domain rules.
//
// Validation rules:
//   - Ticker must not be empty
//   - Name must not be empty
//
// NOT validated:
//   - ID (assigned by storage when zero)
func ValidateCompany(company *Company) error {
	if company == nil {
		return fmt.Errorf("%w: %w: company is nil", ErrInvalid, ErrInvalidCompany)
	}
	if NormalizeTicker(company.Ticker) == "" {
		return fmt.Errorf("%w: %w: %w", ErrInvalid, ErrInvalidCompany, ErrEmptyTicker)
	}
	if company.Name == "" {
		return fmt.Errorf("%w: %w: name: %w", ErrInvalid, ErrInvalidCompany, ErrEmptyContent)
	}
	return nil
}

// ValidateTranscript validates a Transcript according to domain rules.
//
// Validation rules:
//   - CompanyID must be set
//   - Fiscal period must be valid
//   - RawText must not be empty
//   - ContentHash must match RawText
//
// NOT validated (populated by preprocessing):
//   - OrgData and DocumentMeta
//   - ID (assigned by storage when zero)
func ValidateTranscript(t *Transcript) error {
	if t == nil {
		return fmt.Errorf("%w: %w: transcript is nil", ErrInvalid, ErrInvalidTranscript)
	}
	if t.CompanyID == uuid.Nil {
		return fmt.Errorf("%w: %w: company: %w", ErrInvalid, ErrInvalidTranscript, ErrMissingID)
	}
	if err := ValidateFiscalPeriod(t.FiscalYear, t.FiscalQuarter); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTranscript, err)
	}
	if t.RawText == "" {
		return fmt.Errorf("%w: %w: %w", ErrInvalid, ErrInvalidTranscript, ErrEmptyContent)
	}
	if t.ContentHash != ContentHash(t.RawText) {
		return fmt.Errorf("%w: %w: content hash does not match raw text", ErrInvalid, ErrInvalidTranscript)
	}
	return nil
}

// ValidateChunk validates a chunk's identity against its payload.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("%w: %w: chunk is nil", ErrInvalid, ErrInvalidChunk)
	}
	if c.TranscriptID == uuid.Nil {
		return fmt.Errorf("%w: %w: transcript: %w", ErrInvalid, ErrInvalidChunk, ErrMissingID)
	}
	if c.Text() == "" {
		return fmt.Errorf("%w: %w: %w", ErrInvalid, ErrInvalidChunk, ErrEmptyContent)
	}
	if c.ChunkHash != ChunkHash(c.TranscriptID, c.ChunkIndex, c.Text()) {
		return fmt.Errorf("%w: %w: chunk hash does not match payload", ErrInvalid, ErrInvalidChunk)
	}
	if c.ChunkID != ChunkID(c.ChunkHash) {
		return fmt.Errorf("%w: %w: chunk id does not match hash", ErrInvalid, ErrInvalidChunk)
	}
	return nil
}

// ValidateFiscalPeriod checks a fiscal year and quarter.
func ValidateFiscalPeriod(year, quarter int) error {
	if !IsValidFiscalYear(year) {
		return fmt.Errorf("%w: %w: year %d", ErrInvalid, ErrInvalidFiscalPeriod, year)
	}
	if !IsValidFiscalQuarter(quarter) {
		return fmt.Errorf("%w: %w: quarter %d", ErrInvalid, ErrInvalidFiscalPeriod, quarter)
	}
	return nil
}

// ValidateFilters checks the optional parts of retrieval filters.
func ValidateFilters(f Filters) error {
	if f.Year != nil && !IsValidFiscalYear(*f.Year) {
		return fmt.Errorf("%w: %w: year %d", ErrInvalid, ErrInvalidFiscalPeriod, *f.Year)
	}
	if f.Quarter != nil && !IsValidFiscalQuarter(*f.Quarter) {
		return fmt.Errorf("%w: %w: quarter %d", ErrInvalid, ErrInvalidFiscalPeriod, *f.Quarter)
	}
	return nil
}

// IsValidFiscalYear accepts years from MinFiscalYear up to next calendar year.
func IsValidFiscalYear(year int) bool {
	return year >= MinFiscalYear && year <= time.Now().Year()+1
}

// IsValidFiscalQuarter accepts quarters 1 through 4.
func IsValidFiscalQuarter(quarter int) bool {
	return quarter >= 1 && quarter <= 4
}
