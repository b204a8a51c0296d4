// Package ingest writes knowledge documents into the vector index.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
)

// Embedder vectorizes document text. Narrow consumer interface (ISP).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex accepts document vectors.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, namespace string, ids []string) error
}

// Corpus lists the documents to warm-load.
type Corpus interface {
	All() []document.Document
	Get(id string) (document.Document, error)
}

// Service embeds documents and writes them to the index.
type Service struct {
	embedder Embedder
	index    VectorIndex
	corpus   Corpus
	logger   *zap.Logger
}

func NewService(embedder Embedder, idx VectorIndex, corpus Corpus, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, index: idx, corpus: corpus, logger: logger}
}

// IndexDocument embeds one corpus document and upserts it into namespace.
// Upserting the same id again replaces the entry.
func (s *Service) IndexDocument(ctx context.Context, namespace, id string) error {
	doc, err := s.corpus.Get(id)
	if err != nil {
		return fmt.Errorf("load document %s: %w", id, err)
	}
	return s.indexOne(ctx, namespace, doc)
}

// WarmLoad embeds and indexes the whole corpus into namespace. Called at
// startup for in-memory backends that lose state across restarts. Returns
// the number of documents indexed; the first embedding failure aborts the
// load so a half-empty index is never mistaken for a full one.
func (s *Service) WarmLoad(ctx context.Context, namespace string) (int, error) {
	docs := s.corpus.All()
	for i := range docs {
		if err := s.indexOne(ctx, namespace, docs[i]); err != nil {
			return i, fmt.Errorf("warm load aborted at %s: %w", docs[i].ID(), err)
		}
	}
	s.logger.Info("Knowledge base indexed",
		zap.String("namespace", namespace),
		zap.Int("documents", len(docs)))
	return len(docs), nil
}

// Remove deletes document ids from namespace. Missing ids are ignored.
func (s *Service) Remove(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one document id is required", domain.ErrMalformedQuery)
	}
	if err := s.index.Delete(ctx, namespace, ids); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	return nil
}

func (s *Service) indexOne(ctx context.Context, namespace string, doc document.Document) error {
	emb, err := s.embedder.Embed(ctx, doc.EmbeddingText())
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	metadata := map[string]string{
		"title":    doc.Title(),
		"summary":  doc.Summary(),
		"category": doc.Category(),
		"source":   doc.Source(),
		"url":      doc.URL(),
	}
	if err := s.index.Upsert(ctx, namespace, doc.ID(), emb.Embedding, metadata); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}
