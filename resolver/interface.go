// Package resolver defines the resolution pipeline invoked on a cache miss:
// the external LLM call that turns a question plus table schemas into SQL,
// and the safety validation of its output.
package resolver

import (
	"context"

	"nl2sql_cache/schema"
)

// Resolution is the validated output of the pipeline. Only resolutions with
// Validated set may ever be written to the cache.
type Resolution struct {
	SQL       string
	Reasoning []string
	Validated bool
}

// Pipeline generates SQL for a natural-language question against the given
// table schemas. Implementations are expected to take seconds; the cache
// never invokes them while holding a lock.
type Pipeline interface {
	Generate(ctx context.Context, question string, tables []schema.Table) (*Resolution, error)
}
