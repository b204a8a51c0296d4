// Package analyses reads and writes per-user skin analysis records, kept as
// a time-ordered set so the newest analysis is cheap to fetch.
package analyses

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "analyses:"

// Record is one completed skin analysis. Condition scores run 0-100.
type Record struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Conditions map[string]float64 `json:"conditions"`
	Products   []Product          `json:"products,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Product is a product the analysis pipeline attached to a record. The
// catalog itself lives elsewhere; records only carry the suggestion.
type Product struct {
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`
}

// Dominant returns the highest-scoring condition of the record and its raw
// score (0-100). Ties resolve to the lexically smaller name.
func (r Record) Dominant() (string, float64) {
	var best string
	var bestScore float64
	for cond, score := range r.Conditions {
		if best == "" || score > bestScore || (score == bestScore && cond < best) {
			best = cond
			bestScore = score
		}
	}
	return best, bestScore
}

// store is the consumer interface for analysis persistence (ISP).
type store interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRangeByScore(ctx context.Context, key, max, min string, limit int) ([]string, error)
}

// Repository stores and reads analysis records.
type Repository struct {
	store  store
	logger *zap.Logger
}

func New(s store, logger *zap.Logger) *Repository {
	return &Repository{store: s, logger: logger}
}

// Save persists one analysis record.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	k := keyPrefix + rec.UserID
	if err := r.store.ZAdd(ctx, k, float64(rec.CreatedAt.UnixMilli()), string(data)); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// Recent returns up to limit records for the user, newest first.
func (r *Repository) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	members, err := r.store.ZRevRangeByScore(ctx, keyPrefix+userID, "+inf", "-inf", limit)
	if err != nil {
		return nil, fmt.Errorf("read analyses: %w", err)
	}

	records := make([]Record, 0, len(members))
	for _, m := range members {
		var rec Record
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			r.logger.Warn("Skipping malformed analysis entry", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Latest returns the most recent record, or domain.ErrNotFound when the
// user has no analyses yet.
func (r *Repository) Latest(ctx context.Context, userID string) (Record, error) {
	records, err := r.Recent(ctx, userID, 1)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w: no analyses for user", domain.ErrNotFound)
	}
	return records[0], nil
}
