// Package corpus loads the curated skincare knowledge base and keeps it
// available for lock-free concurrent reads. The article set ships embedded
// in the binary and can optionally be replaced from an external file.
package corpus

import (
	_ "embed"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/lumen-skin/lumenkb/internal/domain"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
)

//go:embed articles.yaml
var embeddedArticles []byte

type articleDTO struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Summary          string   `yaml:"summary"`
	Body             string   `yaml:"body"`
	URL              string   `yaml:"url"`
	Source           string   `yaml:"source"`
	Category         string   `yaml:"category"`
	Keywords         []string `yaml:"keywords"`
	TargetConditions []string `yaml:"target_conditions"`
	BaseRelevance    string   `yaml:"base_relevance"`
}

type corpusDTO struct {
	Articles         []articleDTO `yaml:"articles"`
	FallbackArticles []articleDTO `yaml:"fallback_articles"`
}

type snapshot struct {
	documents []document.Document
	fallback  []document.Document
	byID      map[string]document.Document
}

// Corpus is an immutable-snapshot view over the article set. Readers always
// observe a complete corpus; Reload swaps the whole snapshot in one step.
type Corpus struct {
	current atomic.Pointer[snapshot]
}

// Load parses the embedded article set. If path is non-empty the file at
// path replaces the embedded data entirely.
func Load(path string) (*Corpus, error) {
	raw := embeddedArticles
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrCorpusUnavailable, path, err)
		}
		raw = b
	}

	snap, err := parse(raw)
	if err != nil {
		return nil, err
	}

	c := &Corpus{}
	c.current.Store(snap)
	return c, nil
}

// Reload re-reads the article file at path and atomically replaces the
// corpus. On any parse or validation error the previous snapshot stays
// in place untouched.
func (c *Corpus) Reload(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrCorpusUnavailable, path, err)
	}
	snap, err := parse(b)
	if err != nil {
		return err
	}
	c.current.Store(snap)
	return nil
}

func parse(raw []byte) (*snapshot, error) {
	var dto corpusDTO
	if err := yaml.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("%w: parse articles: %w", domain.ErrCorpusUnavailable, err)
	}
	if len(dto.Articles) == 0 {
		return nil, fmt.Errorf("%w: no articles defined", domain.ErrCorpusUnavailable)
	}

	snap := &snapshot{
		byID: make(map[string]document.Document, len(dto.Articles)+len(dto.FallbackArticles)),
	}

	for _, a := range dto.Articles {
		doc, err := buildDocument(a)
		if err != nil {
			return nil, err
		}
		if _, dup := snap.byID[doc.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate article id %q", domain.ErrCorpusUnavailable, doc.ID())
		}
		snap.documents = append(snap.documents, doc)
		snap.byID[doc.ID()] = doc
	}
	for _, a := range dto.FallbackArticles {
		doc, err := buildDocument(a)
		if err != nil {
			return nil, err
		}
		if _, dup := snap.byID[doc.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate article id %q", domain.ErrCorpusUnavailable, doc.ID())
		}
		snap.fallback = append(snap.fallback, doc)
		snap.byID[doc.ID()] = doc
	}

	return snap, nil
}

func buildDocument(a articleDTO) (document.Document, error) {
	rel, err := decimal.NewFromString(a.BaseRelevance)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: article %q base_relevance %q: %w",
			domain.ErrCorpusUnavailable, a.ID, a.BaseRelevance, err)
	}
	relF, _ := rel.Float64()

	doc, err := document.New(a.ID, a.Title, a.Summary, a.Body, a.Keywords,
		a.TargetConditions, a.Category, a.Source, a.URL, relF)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: article %q: %w", domain.ErrCorpusUnavailable, a.ID, err)
	}
	return doc, nil
}

// All returns the primary articles in corpus order. The returned slice is
// shared; callers must not mutate it.
func (c *Corpus) All() []document.Document {
	return c.current.Load().documents
}

// Fallback returns the curated articles served when retrieval comes up empty.
func (c *Corpus) Fallback() []document.Document {
	return c.current.Load().fallback
}

// Get looks up an article by id across both the primary and fallback sets.
func (c *Corpus) Get(id string) (document.Document, error) {
	doc, ok := c.current.Load().byID[id]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: article %q", domain.ErrNotFound, id)
	}
	return doc, nil
}

// Len reports the number of primary articles.
func (c *Corpus) Len() int {
	return len(c.current.Load().documents)
}
