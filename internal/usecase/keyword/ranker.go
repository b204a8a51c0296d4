// Package keyword implements the lexical fallback ranking: substring
// matching of query words against article titles, keywords, and bodies.
package keyword

import (
	"sort"
	"strings"

	"github.com/lumen-skin/lumenkb/internal/domain/document"
	"github.com/lumen-skin/lumenkb/internal/domain/result"
)

// Match weights. The summed score is a raw match count used for ordering
// only; it is never comparable to a vector similarity.
const (
	titleWeight   = 3
	keywordWeight = 2
	bodyWeight    = 1
)

// corpus is the consumer interface for the article set (ISP).
type corpus interface {
	All() []document.Document
}

// Ranker scores articles by lexical overlap with the query.
type Ranker struct {
	corpus corpus
}

func New(c corpus) *Ranker {
	return &Ranker{corpus: c}
}

// Rank scores every article and returns the topK best, highest score
// first. Zero-score articles are excluded. Equal scores keep corpus order,
// so the ranking is deterministic for a given corpus snapshot.
func (r *Ranker) Rank(query string, topK int) []result.Result {
	queryLower := strings.ToLower(query)
	words := tokenize(queryLower)

	type scored struct {
		score int
		doc   document.Document
	}
	var matches []scored

	for _, doc := range r.corpus.All() {
		score := 0

		titleLower := strings.ToLower(doc.Title())
		for _, w := range words {
			if strings.Contains(titleLower, w) {
				score += titleWeight
				break
			}
		}

		for _, kw := range doc.Keywords() {
			if strings.Contains(queryLower, kw) {
				score += keywordWeight
			}
		}

		bodyLower := strings.ToLower(doc.Body())
		for _, w := range words {
			if strings.Contains(bodyLower, w) {
				score += bodyWeight
			}
		}

		if score > 0 {
			matches = append(matches, scored{score: score, doc: doc})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]result.Result, len(matches))
	for i, m := range matches {
		results[i] = result.New(
			m.doc.ID(), float64(m.score), result.StrategyKeyword,
			m.doc.Title(), m.doc.Summary(), m.doc.Source(),
			map[string]string{
				"category": m.doc.Category(),
				"url":      m.doc.URL(),
			},
		)
	}
	return results
}

// tokenize splits on whitespace and trims punctuation from word edges, so
// "wrinkles?" still matches "wrinkles" in article text.
func tokenize(s string) []string {
	fields := strings.Fields(s)
	words := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !isAlnum(r)
		})
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z'
}
