package ai

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/poiesic/earningsrag/core"
)

var (
	// ErrUpstream wraps every failure reported by a model server.
	ErrUpstream = fmt.Errorf("ai: %w", core.ErrUpstream)

	// ErrTimeout marks upstream failures caused by a request deadline.
	ErrTimeout = fmt.Errorf("%w: request timed out", ErrUpstream)

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = fmt.Errorf("ai config: %w", core.ErrConfiguration)

	// ErrUnknownProvider is returned for provider names other than the Provider constants.
	ErrUnknownProvider = fmt.Errorf("%w: unknown provider", ErrInvalidConfig)

	// ErrDimensionMismatch is returned when a model answers with vectors of
	// the wrong length or the wrong count.
	ErrDimensionMismatch = fmt.Errorf("ai: %w: embedding dimension mismatch", core.ErrConfiguration)

	// ErrNotSupported is returned by services a provider does not offer.
	ErrNotSupported = fmt.Errorf("ai: %w: operation not supported by provider", core.ErrConfiguration)
)

// UpstreamError wraps err as an upstream failure of op. Deadline and network
// timeouts are additionally marked with ErrTimeout. Nil stays nil.
func UpstreamError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstream) {
		return err
	}
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// CheckEmbeddings verifies that vectors holds one vector of dims entries per
// input text. A dims of zero skips the length check.
func CheckEmbeddings(vectors [][]float32, texts, dims int) error {
	if len(vectors) != texts {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrDimensionMismatch, len(vectors), texts)
	}
	if dims <= 0 {
		return nil
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return nil
}
