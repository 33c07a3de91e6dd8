package qa

import (
	"errors"
	"fmt"

	"github.com/poiesic/earningsrag/core"
)

var (
	// ErrInsufficientEvidence is returned by Augment when there is no context
	// to answer from.
	ErrInsufficientEvidence = errors.New("insufficient evidence")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrInvalidOptions is returned for a bad strategy or context budget.
	ErrInvalidOptions = fmt.Errorf("qa: %w: invalid options", core.ErrConfiguration)
)
