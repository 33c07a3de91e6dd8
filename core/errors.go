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
	"context"
	"errors"
)

// Error classes. Packages wrap these so callers can branch with errors.Is
// regardless of which layer produced the failure.
var (
	// ErrNotFound indicates a structurally required document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a write would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrUpstream indicates an embedding model, LLM or external service failed.
	ErrUpstream = errors.New("upstream failure")

	// ErrConfiguration indicates invalid or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalid indicates invalid caller input.
	ErrInvalid = errors.New("invalid input")
)

// Domain validation errors
var (
	// ErrInvalidCompany indicates a Company failed validation.
	ErrInvalidCompany = errors.New("invalid company")

	// ErrInvalidTranscript indicates a Transcript failed validation.
	ErrInvalidTranscript = errors.New("invalid transcript")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidFiscalPeriod indicates a fiscal year or quarter is out of range.
	ErrInvalidFiscalPeriod = errors.New("invalid fiscal period")

	// ErrEmptyContent indicates required text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyTicker indicates the Ticker field is empty.
	ErrEmptyTicker = errors.New("ticker cannot be empty")

	// ErrMissingID indicates a required identifier is the zero UUID.
	ErrMissingID = errors.New("identifier cannot be empty")
)

// ErrorClass groups errors by how a caller should react to them.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassNotFound
	ClassConflict
	ClassUpstream
	ClassConfiguration
	ClassInvalid
)

// String returns the string representation of ErrorClass
func (c ErrorClass) String() string {
	switch c {
	case ClassNotFound:
		return "not-found"
	case ClassConflict:
		return "conflict"
	case ClassUpstream:
		return "upstream"
	case ClassConfiguration:
		return "configuration"
	case ClassInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify maps an error onto its class. Deadline and cancellation errors are
// treated as upstream failures since they only arise around external calls.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrConfiguration):
		return ClassConfiguration
	case errors.Is(err, ErrConflict):
		return ClassConflict
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrUpstream),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ClassUpstream
	case errors.Is(err, ErrInvalid):
		return ClassInvalid
	default:
		return ClassUnknown
	}
}
