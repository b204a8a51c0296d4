package retriever

import (
	"context"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
	"github.com/lumen-skin/lumenkb/internal/index"
)

// Embedder turns query text into a vector. Narrow consumer interface (ISP).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex answers nearest-neighbor queries.
type VectorIndex interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]string) ([]index.Match, error)
}

// KeywordRanker is the lexical fallback strategy.
type KeywordRanker interface {
	Rank(query string, topK int) []result.Result
}

// Corpus resolves document ids to display fields.
type Corpus interface {
	Get(id string) (document.Document, error)
}
