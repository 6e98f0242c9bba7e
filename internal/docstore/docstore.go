// Package docstore abstracts the remote document database: collections of
// schemaless documents addressed by (collection path, document id), with
// ordered queries, merge/replace writes and atomic batches.
//
// Collection paths may be nested ("users/<uid>/tunes"); the store does not
// interpret them beyond using the full path as the collection key.
package docstore

import (
	"context"
	"time"
)

// Document is one stored document.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

// Query describes a collection read.
type Query struct {
	// OrderBy names the field to sort by; empty means unspecified order.
	OrderBy string
	// Desc reverses the sort order.
	Desc bool
	// Filters are ANDed equality constraints.
	Filters []Filter
}

// SetOptions controls document write behavior.
type SetOptions struct {
	// Merge updates only the given fields instead of replacing the document.
	Merge bool
}

// Store is the remote document database.
type Store interface {
	// Get returns one document. A missing document yields a NotFound error.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// GetAll returns every document matching the query.
	GetAll(ctx context.Context, collection string, q Query) ([]Document, error)

	// Set writes a document, replacing it wholesale unless opts.Merge is set.
	Set(ctx context.Context, collection, id string, data map[string]any, opts SetOptions) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Batch starts an atomic multi-document write.
	Batch() Batch
}

// MaxBatchOps is the most operations a single batch commit may carry,
// set by the DynamoDB transaction item limit. Callers with larger
// workloads that do not need cross-batch atomicity must chunk.
const MaxBatchOps = 100

// Batch accumulates writes that commit atomically: either every operation
// is applied or none is. Commit rejects batches over MaxBatchOps with
// InvalidArgument.
type Batch interface {
	Set(collection, id string, data map[string]any)
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// serverTime is the sentinel resolved to the store's clock at write time.
// The backing database has no server-assigned timestamps, so the store
// substitutes its own clock when the write is performed.
type serverTime struct{}

// ServerTime marks a field to be stamped with the write time.
var ServerTime = serverTime{}

// resolveServerTime returns a copy of data with ServerTime sentinels
// replaced by now.
func resolveServerTime(data map[string]any, now time.Time) map[string]any {
	resolved := make(map[string]any, len(data))
	for k, v := range data {
		if _, ok := v.(serverTime); ok {
			resolved[k] = now
			continue
		}
		resolved[k] = v
	}
	return resolved
}
