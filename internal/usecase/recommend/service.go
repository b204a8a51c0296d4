// Package recommend serves the Learning Hub discovery surfaces:
// condition-matched article recommendations, catalog browsing, and search
// autocomplete.
package recommend

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain/condition"
	"github.com/lumen-skin/lumenkb/internal/domain/document"
	"github.com/lumen-skin/lumenkb/internal/repository/analyses"
)

const (
	recommendationLimit = 10
	analysesWindow      = 5
	suggestionLimit     = 6
)

// autocompleteFallback is served when the prefix matches nothing.
var autocompleteFallback = []string{
	"acne care routine",
	"dark spot treatment",
	"hydrating ingredients",
	"sunscreen tips",
	"retinol beginner guide",
	"sensitive skin routine",
	"hyperpigmentation help",
}

// corpus is the consumer interface for the article set (ISP).
type corpus interface {
	All() []document.Document
	Fallback() []document.Document
}

// analysesReader loads the user's recent analyses.
type analysesReader interface {
	Recent(ctx context.Context, userID string, limit int) ([]analyses.Record, error)
}

// Service answers recommendation and browsing requests.
type Service struct {
	corpus   corpus
	analyses analysesReader
	logger   *zap.Logger
}

func NewService(c corpus, a analysesReader, logger *zap.Logger) *Service {
	return &Service{corpus: c, analyses: a, logger: logger}
}

// Recommendations is the personalized "For You" payload.
type Recommendations struct {
	Articles          []document.Document
	BasedOnConditions []string
	TotalAnalyses     int
	ConditionMatches  map[string]int
}

// ForUser builds recommendations from the user's recent analyses. A user
// with no analyses gets an empty set, not the whole catalog.
func (s *Service) ForUser(ctx context.Context, userID string) (Recommendations, error) {
	records, err := s.analyses.Recent(ctx, userID, analysesWindow)
	if err != nil {
		s.logger.Warn("Unable to load analyses for recommendations",
			zap.String("user_id", userID), zap.Error(err))
		records = nil
	}

	var labels []condition.Label
	seen := make(map[condition.Label]struct{})
	for _, rec := range records {
		cond, _ := rec.Dominant()
		if cond == "" {
			continue
		}
		label := condition.Canonical(cond)
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	matches := make(map[string]int, len(labels))
	for _, label := range labels {
		matches[label.String()] = len(s.Personalized([]condition.Label{label}, 0))
	}

	basedOn := make([]string, len(labels))
	for i, l := range labels {
		basedOn[i] = l.String()
	}

	return Recommendations{
		Articles:          s.Personalized(labels, recommendationLimit),
		BasedOnConditions: basedOn,
		TotalAnalyses:     len(records),
		ConditionMatches:  matches,
	}, nil
}

// Personalized returns articles matching any of the given conditions,
// sorted by base relevance, best first. limit <= 0 means no limit.
// No conditions means no personalized articles.
func (s *Service) Personalized(conditions []condition.Label, limit int) []document.Document {
	if len(conditions) == 0 {
		return nil
	}

	var matched []document.Document
	for _, doc := range s.corpus.All() {
		for _, label := range conditions {
			if doc.MatchesCondition(label) {
				matched = append(matched, doc)
				break
			}
		}
	}

	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].BaseRelevance() > matched[b].BaseRelevance()
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

// Browse filters the catalog by category and free-text query. An empty
// result set falls back to the curated articles so the surface is never
// blank.
func (s *Service) Browse(category, queryText string, limit int) []document.Document {
	if limit <= 0 {
		limit = recommendationLimit
	}

	var matched []document.Document
	for _, doc := range s.corpus.All() {
		if category != "" && !strings.EqualFold(doc.Category(), category) {
			continue
		}
		if queryText != "" && !matchesQuery(doc, queryText) {
			continue
		}
		matched = append(matched, doc)
		if len(matched) >= limit {
			break
		}
	}

	if len(matched) == 0 {
		fallback := s.corpus.Fallback()
		if len(fallback) > limit {
			fallback = fallback[:limit]
		}
		return fallback
	}
	return matched
}

func matchesQuery(doc document.Document, queryText string) bool {
	q := strings.ToLower(queryText)
	if strings.Contains(strings.ToLower(doc.Title()), q) {
		return true
	}
	for _, kw := range doc.Keywords() {
		if strings.Contains(kw, q) {
			return true
		}
	}
	return false
}

// Suggest returns autocomplete completions for a search prefix. Keywords
// match before titles; the static fallback list backstops rare prefixes.
func (s *Service) Suggest(prefix string, limit int) []string {
	if limit <= 0 {
		limit = suggestionLimit
	}
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		if limit > 5 {
			limit = 5
		}
		return autocompleteFallback[:limit]
	}

	var suggestions []string
	seen := make(map[string]struct{})
	add := func(s string) bool {
		lowered := strings.ToLower(s)
		if _, dup := seen[lowered]; dup {
			return len(suggestions) >= limit
		}
		seen[lowered] = struct{}{}
		suggestions = append(suggestions, s)
		return len(suggestions) >= limit
	}

	for _, doc := range s.corpus.All() {
		for _, kw := range doc.Keywords() {
			if strings.HasPrefix(kw, prefix) && add(kw) {
				return suggestions
			}
		}
		if strings.HasPrefix(strings.ToLower(doc.Title()), prefix) && add(doc.Title()) {
			return suggestions
		}
	}

	for _, s := range autocompleteFallback {
		if strings.HasPrefix(s, prefix) && add(s) {
			break
		}
	}
	if len(suggestions) == 0 {
		if limit > len(autocompleteFallback) {
			limit = len(autocompleteFallback)
		}
		return autocompleteFallback[:limit]
	}
	return suggestions
}
