// Package result defines the normalized scored hit returned by every
// retrieval strategy.
package result

// Strategy identifies which ranking produced a result. Scores from
// different strategies are not numerically comparable and must never be
// merged by raw value.
type Strategy string

// Retrieval strategies.
const (
	StrategyVector  Strategy = "vector"
	StrategyKeyword Strategy = "keyword"
)

// Result is a single scored retrieval hit.
type Result struct {
	id       string
	score    float64
	strategy Strategy
	title    string
	summary  string
	source   string
	metadata map[string]string
}

// New creates a scored result.
func New(
	id string, score float64, strategy Strategy,
	title, summary, source string,
	metadata map[string]string,
) Result {
	return Result{
		id:       id,
		score:    score,
		strategy: strategy,
		title:    title,
		summary:  summary,
		source:   source,
		metadata: metadata,
	}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score. Cosine similarity for the vector
// strategy; a raw integer match count for the keyword strategy.
func (r *Result) Score() float64 { return r.score }

// Origin returns the strategy that produced this result.
func (r *Result) Origin() Strategy { return r.strategy }

// Title returns the document title.
func (r *Result) Title() string { return r.title }

// Summary returns the display summary.
func (r *Result) Summary() string { return r.summary }

// Source returns the attribution string.
func (r *Result) Source() string { return r.source }

// Metadata returns the metadata snapshot captured at query time.
func (r *Result) Metadata() map[string]string { return r.metadata }
