// Package chromem backs the vector index with a persistent chromem-go
// database, so the index survives restarts without re-embedding the corpus.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/lumen-skin/lumenkb/internal/index"
)

var _ index.VectorIndex = (*Index)(nil)

// Index maps namespaces onto chromem collections inside one persistent DB.
type Index struct {
	db *chromemgo.DB

	mu          sync.Mutex
	collections map[string]*chromemgo.Collection
}

// New opens (or creates) a persistent chromem database at path.
func New(path string, compress bool) (*Index, error) {
	db, err := chromemgo.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
	}
	return &Index{db: db, collections: make(map[string]*chromemgo.Collection)}, nil
}

// externalOnly is installed as the collection embedding func. All writes and
// queries carry precomputed embeddings, so chromem must never embed itself.
func externalOnly(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem index: embeddings are provided externally")
}

func (i *Index) collection(ns string) (*chromemgo.Collection, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if c, ok := i.collections[ns]; ok {
		return c, nil
	}
	c, err := i.db.GetOrCreateCollection(ns, nil, externalOnly)
	if err != nil {
		return nil, fmt.Errorf("get collection %q: %w", ns, err)
	}
	i.collections[ns] = c
	return c, nil
}

func (i *Index) Upsert(ctx context.Context, ns, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("chromem index: empty id")
	}
	if len(vector) == 0 {
		return fmt.Errorf("chromem index: empty vector for id %q", id)
	}
	c, err := i.collection(ns)
	if err != nil {
		return err
	}

	content := metadata["title"]
	if content == "" {
		content = id
	}
	doc := chromemgo.Document{
		ID:        id,
		Content:   content,
		Metadata:  metadata,
		Embedding: vector,
	}
	if err := c.AddDocuments(ctx, []chromemgo.Document{doc}, 1); err != nil {
		return fmt.Errorf("upsert %q into %q: %w", id, ns, err)
	}
	return nil
}

func (i *Index) Query(ctx context.Context, ns string, vector []float32, topK int, filter map[string]string) ([]index.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("chromem index: non-positive topK %d", topK)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("chromem index: empty query vector")
	}
	c, err := i.collection(ns)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults greater than the collection size.
	count := c.Count()
	if count == 0 {
		return []index.Match{}, nil
	}
	if topK > count {
		topK = count
	}

	results, err := c.QueryEmbedding(ctx, vector, topK, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", ns, err)
	}

	matches := make([]index.Match, len(results))
	for idx, r := range results {
		matches[idx] = index.Match{ID: r.ID, Score: float64(r.Similarity), Metadata: r.Metadata}
	}
	return matches, nil
}

// Count reports the number of documents stored in a namespace. A fresh
// database reports zero, which callers use to decide on seeding.
func (i *Index) Count(ns string) (int, error) {
	c, err := i.collection(ns)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

func (i *Index) Delete(ctx context.Context, ns string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c, err := i.collection(ns)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete from %q: %w", ns, err)
	}
	return nil
}
