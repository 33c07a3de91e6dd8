package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func validTranscript() *Transcript {
	raw := "Good afternoon and welcome."
	return &Transcript{
		ID:            uuid.New(),
		CompanyID:     uuid.New(),
		FiscalYear:    2024,
		FiscalQuarter: 2,
		RawText:       raw,
		ContentHash:   ContentHash(raw),
	}
}

func TestValidateCompany(t *testing.T) {
	tests := []struct {
		name    string
		company *Company
		wantErr error
	}{
		{
			name:    "valid company",
			company: &Company{Name: "Apple Inc.", Ticker: "AAPL"},
			wantErr: nil,
		},
		{
			name:    "nil company",
			company: nil,
			wantErr: ErrInvalidCompany,
		},
		{
			name:    "blank ticker",
			company: &Company{Name: "Apple Inc.", Ticker: "  "},
			wantErr: ErrEmptyTicker,
		},
		{
			name:    "empty name",
			company: &Company{Ticker: "AAPL"},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCompany(tt.company)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCompany() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCompany() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("ValidateCompany() error should be classed invalid, got %v", err)
			}
		})
	}
}

func TestValidateTranscript(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transcript)
		wantErr error
	}{
		{
			name:    "valid transcript",
			mutate:  func(*Transcript) {},
			wantErr: nil,
		},
		{
			name:    "missing company",
			mutate:  func(tr *Transcript) { tr.CompanyID = uuid.Nil },
			wantErr: ErrMissingID,
		},
		{
			name:    "quarter out of range",
			mutate:  func(tr *Transcript) { tr.FiscalQuarter = 5 },
			wantErr: ErrInvalidFiscalPeriod,
		},
		{
			name:    "year before coverage",
			mutate:  func(tr *Transcript) { tr.FiscalYear = 1999 },
			wantErr: ErrInvalidFiscalPeriod,
		},
		{
			name: "empty text",
			mutate: func(tr *Transcript) {
				tr.RawText = ""
				tr.ContentHash = ContentHash("")
			},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "stale hash",
			mutate:  func(tr *Transcript) { tr.RawText += " Thank you." },
			wantErr: ErrInvalidTranscript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := validTranscript()
			tt.mutate(tr)
			err := ValidateTranscript(tr)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTranscript() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTranscript() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := ValidateTranscript(nil); !errors.Is(err, ErrInvalidTranscript) {
		t.Errorf("ValidateTranscript(nil) error = %v", err)
	}
}

func TestValidateChunk(t *testing.T) {
	tid := uuid.New()
	good := NewChunk(tid, uuid.New(), 1, ChunkData{KeyChunkText: "Demand stayed strong."})
	if err := ValidateChunk(&good); err != nil {
		t.Fatalf("ValidateChunk() unexpected error = %v", err)
	}

	tampered := good
	tampered.Data = ChunkData{KeyChunkText: "Demand softened."}
	if err := ValidateChunk(&tampered); !errors.Is(err, ErrInvalidChunk) {
		t.Errorf("ValidateChunk() should reject a payload that does not match its hash, got %v", err)
	}

	empty := NewChunk(tid, uuid.New(), 2, ChunkData{})
	if err := ValidateChunk(&empty); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("ValidateChunk() error = %v, want %v", err, ErrEmptyContent)
	}
}

func TestValidateFilters(t *testing.T) {
	year := 2023
	badQuarter := 0
	nextYear := time.Now().Year() + 2

	if err := ValidateFilters(Filters{}); err != nil {
		t.Errorf("empty filters should be valid: %v", err)
	}
	if err := ValidateFilters(Filters{Year: &year}); err != nil {
		t.Errorf("year filter should be valid: %v", err)
	}
	if err := ValidateFilters(Filters{Quarter: &badQuarter}); !errors.Is(err, ErrInvalidFiscalPeriod) {
		t.Errorf("quarter 0 should be rejected, got %v", err)
	}
	if err := ValidateFilters(Filters{Year: &nextYear}); !errors.Is(err, ErrInvalidFiscalPeriod) {
		t.Errorf("far future year should be rejected, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorClass
	}{
		{nil, ClassUnknown},
		{fmt.Errorf("wrapped: %w", ErrNotFound), ClassNotFound},
		{fmt.Errorf("duplicate period: %w", ErrConflict), ClassConflict},
		{fmt.Errorf("embed: %w", ErrUpstream), ClassUpstream},
		{ValidateFiscalPeriod(2020, 9), ClassInvalid},
		{fmt.Errorf("bad strategy: %w", ErrConfiguration), ClassConfiguration},
		{errors.New("boom"), ClassUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
