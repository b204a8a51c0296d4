// Package document defines the unit of retrievable knowledge: a curated
// article or snippet matched against user queries and condition labels.
package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
)

// SummaryDisplayLimit caps the summary length returned to callers.
const SummaryDisplayLimit = 300

// Document is an immutable knowledge-base entry. Created at ingest time,
// never mutated by the retrieval path.
type Document struct {
	id               string
	title            string
	summary          string
	body             string
	keywords         []string
	targetConditions []condition.Label
	category         string
	source           string
	url              string
	baseRelevance    float64
}

// New validates and creates a document. Base relevance is clamped to [0,1].
func New(
	id, title, summary, body string,
	keywords []string,
	targetConditions []string,
	category, source, url string,
	baseRelevance float64,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document id is required")
	}
	if title == "" {
		return Document{}, fmt.Errorf("document %q: title is required", id)
	}
	if baseRelevance < 0 {
		baseRelevance = 0
	}
	if baseRelevance > 1 {
		baseRelevance = 1
	}

	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kws = append(kws, k)
		}
	}

	conds := make([]condition.Label, 0, len(targetConditions))
	for _, c := range targetConditions {
		l := condition.Normalize(c)
		if !l.IsZero() {
			conds = append(conds, l)
		}
	}

	return Document{
		id:               id,
		title:            title,
		summary:          summary,
		body:             body,
		keywords:         kws,
		targetConditions: conds,
		category:         category,
		source:           source,
		url:              url,
		baseRelevance:    baseRelevance,
	}, nil
}

// ID returns the stable document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Summary returns the display summary, truncated to SummaryDisplayLimit.
// Falls back to the leading slice of the body when no summary was curated.
func (d *Document) Summary() string {
	s := d.summary
	if s == "" {
		s = d.body
	}
	if len(s) > SummaryDisplayLimit {
		cut := SummaryDisplayLimit
		// Back off to a rune boundary so a multi-byte character never splits.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

// Body returns the full article text.
func (d *Document) Body() string { return d.body }

// Keywords returns the lowercase keyword set.
func (d *Document) Keywords() []string { return d.keywords }

// TargetConditions returns the normalized condition labels this document targets.
func (d *Document) TargetConditions() []condition.Label { return d.targetConditions }

// Category returns the content category (conditions, ingredients, routines...).
func (d *Document) Category() string { return d.category }

// Source returns the attribution string.
func (d *Document) Source() string { return d.source }

// URL returns the canonical article link.
func (d *Document) URL() string { return d.url }

// BaseRelevance returns the author-assigned quality prior in [0,1].
func (d *Document) BaseRelevance() float64 { return d.baseRelevance }

// EmbeddingText returns the text embedded for semantic search:
// title and body joined, matching how the knowledge base was indexed.
func (d *Document) EmbeddingText() string {
	return d.title + ". " + d.body
}

// MatchesCondition reports whether the label matches any target condition
// or keyword, using loose bidirectional containment.
func (d *Document) MatchesCondition(label condition.Label) bool {
	for _, tc := range d.targetConditions {
		if label.Matches(string(tc)) {
			return true
		}
	}
	for _, kw := range d.keywords {
		if label.Matches(kw) {
			return true
		}
	}
	return false
}
