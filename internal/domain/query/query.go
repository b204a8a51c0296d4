// Package query defines the validated retrieval request value object.
// The transport layer resolves whatever request shape arrived into this
// one form; the retrieval core never sees anything else.
package query

import (
	"fmt"

	"github.com/lumen-skin/lumenkb/internal/domain"
)

// Retrieval parameter limits.
const (
	MaxQueryLength   = 2048
	DefaultTopK      = 5
	MaxTopK          = 50
	DefaultNamespace = "knowledge-base"
)

// Query is a validated, transient retrieval request.
type Query struct {
	text      string
	namespace string
	topK      int
	filter    map[string]string
}

// New validates and normalizes retrieval parameters.
// Defaults: namespace=knowledge-base, topK=5. An explicitly non-positive
// topK or empty text is rejected with domain.ErrMalformedQuery; topK=0
// means "not set" and takes the default.
func New(text, namespace string, topK int, filter map[string]string) (Query, error) {
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrMalformedQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrMalformedQuery, MaxQueryLength)
	}
	if topK < 0 {
		return Query{}, fmt.Errorf("%w: top_k must be positive", domain.ErrMalformedQuery)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return Query{
		text:      text,
		namespace: namespace,
		topK:      topK,
		filter:    filter,
	}, nil
}

// Text returns the free-text query.
func (q *Query) Text() string { return q.text }

// Namespace returns the index partition the query is scoped to.
func (q *Query) Namespace() string { return q.namespace }

// TopK returns the maximum number of results requested.
func (q *Query) TopK() int { return q.topK }

// Filter returns the equality metadata filter, or nil.
func (q *Query) Filter() map[string]string { return q.filter }
