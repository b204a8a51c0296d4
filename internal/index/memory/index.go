// Package memory provides a process-local vector index. It is the default
// backend: fast, dependency-free, rebuilt from the corpus on startup.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lumen-skin/lumenkb/internal/index"
)

type entry struct {
	id       string
	vector   []float32
	metadata map[string]string
	seq      int
}

// Index is an in-memory vector index safe for concurrent use. Entries keep
// their insertion order so equal-score results rank deterministically.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

type namespace struct {
	entries []*entry
	byID    map[string]*entry
	nextSeq int
}

var _ index.VectorIndex = (*Index)(nil)

func New() *Index {
	return &Index{namespaces: make(map[string]*namespace)}
}

func (i *Index) Upsert(_ context.Context, ns, id string, vector []float32, metadata map[string]string) error {
	if id == "" {
		return fmt.Errorf("memory index: empty id")
	}
	if len(vector) == 0 {
		return fmt.Errorf("memory index: empty vector for id %q", id)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	n, ok := i.namespaces[ns]
	if !ok {
		n = &namespace{byID: make(map[string]*entry)}
		i.namespaces[ns] = n
	}

	if existing, ok := n.byID[id]; ok {
		existing.vector = vec
		existing.metadata = meta
		return nil
	}

	e := &entry{id: id, vector: vec, metadata: meta, seq: n.nextSeq}
	n.nextSeq++
	n.entries = append(n.entries, e)
	n.byID[id] = e
	return nil
}

func (i *Index) Query(_ context.Context, ns string, vector []float32, topK int, filter map[string]string) ([]index.Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("memory index: non-positive topK %d", topK)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("memory index: empty query vector")
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	n, ok := i.namespaces[ns]
	if !ok {
		return []index.Match{}, nil
	}

	type scored struct {
		match index.Match
		seq   int
	}
	candidates := make([]scored, 0, len(n.entries))
	for _, e := range n.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		if len(e.vector) != len(vector) {
			continue
		}
		candidates = append(candidates, scored{
			match: index.Match{ID: e.id, Score: cosine(vector, e.vector), Metadata: e.metadata},
			seq:   e.seq,
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].match.Score != candidates[b].match.Score {
			return candidates[a].match.Score > candidates[b].match.Score
		}
		return candidates[a].seq < candidates[b].seq
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	out := make([]index.Match, len(candidates))
	for idx, c := range candidates {
		out[idx] = c.match
	}
	return out, nil
}

func (i *Index) Delete(_ context.Context, ns string, ids []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	n, ok := i.namespaces[ns]
	if !ok {
		return nil
	}
	for _, id := range ids {
		e, ok := n.byID[id]
		if !ok {
			continue
		}
		delete(n.byID, id)
		for idx, cur := range n.entries {
			if cur == e {
				n.entries = append(n.entries[:idx], n.entries[idx+1:]...)
				break
			}
		}
	}
	return nil
}

// Count reports the number of entries in a namespace.
func (i *Index) Count(ns string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	n, ok := i.namespaces[ns]
	if !ok {
		return 0
	}
	return len(n.entries)
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
