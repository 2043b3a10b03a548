// Package embedding turns chunk text into normalized vectors for similarity search.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	maxRetries     = 3
	initialBackoff = time.Second
	// DefaultDimensions matches the vector(768) column of the chunk table
	DefaultDimensions = 768
	batchSize         = 96
)

var (
	ErrEmbeddingFailed     = errors.New("failed to generate embedding")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
	errNonRetryableRequest = errors.New("request rejected")
)

// retry runs fn up to maxRetries times with doubling backoff.
// Errors wrapping errNonRetryableRequest stop immediately.
func retry(ctx context.Context, fn func() error) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, errNonRetryableRequest) || ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrEmbeddingFailed, maxRetries, lastErr)
}

// normalize scales v to unit length in place
func normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] = float32(float64(v[i]) / norm)
		}
	}
	return v
}

func checkDimensions(vectors [][]float32, want int) error {
	if want <= 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, want, len(v))
		}
	}
	return nil
}

// batches splits texts into groups the providers accept in one request
func batches(texts []string) [][]string {
	var out [][]string
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
