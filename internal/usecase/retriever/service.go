// Package retriever selects the retrieval strategy for a query: semantic
// vector search first, lexical keyword ranking as the one-shot fallback.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/query"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
	"github.com/lumen-skin/lumenkb/internal/metrics"
)

// DefaultVectorTimeout bounds the embed + index round trip before the
// keyword fallback takes over.
const DefaultVectorTimeout = 3 * time.Second

// Service answers retrieval queries. When the vector path is not configured
// (nil embedder or index) every query goes straight to keyword ranking.
type Service struct {
	embedder      Embedder
	index         VectorIndex
	keyword       KeywordRanker
	corpus        Corpus
	vectorTimeout time.Duration
	logger        *zap.Logger
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithVectorTimeout overrides the vector path deadline.
func WithVectorTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.vectorTimeout = d
		}
	}
}

func NewService(
	embedder Embedder,
	idx VectorIndex,
	keyword KeywordRanker,
	corpus Corpus,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		embedder:      embedder,
		index:         idx,
		keyword:       keyword,
		corpus:        corpus,
		vectorTimeout: DefaultVectorTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve runs the query through the configured strategies. The vector and
// keyword paths never run together for one query: either the vector path
// succeeds and its results are returned as-is, or it fails and the keyword
// ranking runs exactly once in its place.
func (s *Service) Retrieve(ctx context.Context, q query.Query) ([]result.Result, error) {
	if s.embedder == nil || s.index == nil {
		return s.keywordOnly(q), nil
	}

	start := time.Now()
	results, err := s.vectorSearch(ctx, q)
	if err != nil {
		s.logger.Warn("Vector retrieval failed, falling back to keyword ranking",
			zap.String("namespace", q.Namespace()),
			zap.Error(err))
		metrics.RetrievalFallbacksTotal.WithLabelValues(fallbackReason(err)).Inc()
		return s.keywordOnly(q), nil
	}

	metrics.RetrievalRequestsTotal.WithLabelValues(string(result.StrategyVector), "success").Inc()
	metrics.RetrievalDuration.WithLabelValues(string(result.StrategyVector)).Observe(time.Since(start).Seconds())
	return results, nil
}

func (s *Service) keywordOnly(q query.Query) []result.Result {
	start := time.Now()
	results := s.keyword.Rank(q.Text(), q.TopK())
	metrics.RetrievalRequestsTotal.WithLabelValues(string(result.StrategyKeyword), "success").Inc()
	metrics.RetrievalDuration.WithLabelValues(string(result.StrategyKeyword)).Observe(time.Since(start).Seconds())
	return results
}

func (s *Service) vectorSearch(ctx context.Context, q query.Query) ([]result.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.vectorTimeout)
	defer cancel()

	emb, err := s.embedder.Embed(ctx, q.Text())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.index.Query(ctx, q.Namespace(), emb.Embedding, q.TopK(), q.Filter())
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	results := make([]result.Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, s.hydrate(m.ID, m.Score, m.Metadata))
	}
	return results, nil
}

// hydrate fills display fields from the corpus when the id is known there;
// index metadata covers entries (e.g. user patterns) the corpus never held.
func (s *Service) hydrate(id string, score float64, metadata map[string]string) result.Result {
	if s.corpus != nil {
		if doc, err := s.corpus.Get(id); err == nil {
			return result.New(id, score, result.StrategyVector,
				doc.Title(), doc.Summary(), doc.Source(),
				map[string]string{"category": doc.Category(), "url": doc.URL()})
		}
	}
	return result.New(id, score, result.StrategyVector,
		metadata["title"], metadata["summary"], metadata["source"], metadata)
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "embedding_error"
	default:
		return "index_error"
	}
}
