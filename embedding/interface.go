// Package embedding defines the question-embedding contract consumed by the
// semantic query cache.
package embedding

import "context"

// Service converts question text into a fixed-dimension vector. The cache
// only relies on semantically similar questions mapping to nearby vectors;
// an embedding failure is treated as a forced cache miss, never as a
// user-visible error.
type Service interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the fixed vector dimension this service produces.
	Dimensions() int
}
