// Package index defines the vector index boundary used for semantic
// retrieval. Backends are namespace-partitioned and must keep namespaces
// fully isolated from each other.
package index

import "context"

// Match is one scored hit from a vector query.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// VectorIndex stores embeddings per namespace and answers nearest-neighbor
// queries over them. Metadata filters are applied before the top-k cut, so a
// filtered query never loses matching entries to non-matching higher scorers.
type VectorIndex interface {
	// Upsert writes or replaces the vector for id within namespace.
	// Upserting an existing id must not create a duplicate entry.
	Upsert(ctx context.Context, namespace, id string, vector []float32, metadata map[string]string) error

	// Query returns up to topK matches ordered by descending similarity.
	// An empty namespace yields an empty result, not an error.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]string) ([]Match, error)

	// Delete removes the given ids from namespace. Ids that are not
	// present are ignored.
	Delete(ctx context.Context, namespace string, ids []string) error
}
