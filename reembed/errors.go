package reembed

import (
	"errors"
	"fmt"

	"github.com/poiesic/earningsrag/core"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrStoreRequired is returned when no chunk store is supplied.
	ErrStoreRequired = fmt.Errorf("reembed: %w: chunk store is required", core.ErrConfiguration)

	// ErrCacheRequired is returned when no embedding cache is supplied.
	ErrCacheRequired = fmt.Errorf("reembed: %w: embedding cache is required", core.ErrConfiguration)
)
