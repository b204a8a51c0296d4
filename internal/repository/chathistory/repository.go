// Package chathistory persists Learning Hub conversations in a sorted set
// keyed by user and session, ordered by message time.
package chathistory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-skin/lumenkb/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "chat:"

	// RetentionTTL is how long a conversation survives after its last message.
	RetentionTTL = 30 * 24 * time.Hour
)

// Message is one chat turn.
type Message struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"` // "user" / "assistant"
	Content     string    `json:"content"`
	ArticleRefs []string  `json:"article_refs,omitempty"`
	Fallback    bool      `json:"fallback,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// store is the consumer interface for chat persistence (ISP).
type store interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRangeByScore(ctx context.Context, key, max, min string, limit int) ([]string, error)
	ZRemRangeByScore(ctx context.Context, key, min, max string) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Repository stores and reads conversation history.
type Repository struct {
	store  store
	logger *zap.Logger
}

func New(s store, logger *zap.Logger) *Repository {
	return &Repository{store: s, logger: logger}
}

func key(userID, sessionID string) string {
	return keyPrefix + userID + ":" + sessionID
}

// Append persists one message and refreshes the session retention window.
// The key TTL only covers idle sessions; a busy session keeps refreshing
// it, so turns past the retention window are trimmed by score here.
func (r *Repository) Append(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	k := key(msg.UserID, msg.SessionID)
	if err := r.store.ZAdd(ctx, k, float64(msg.CreatedAt.UnixMilli()), string(data)); err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}

	cutoff := msg.CreatedAt.Add(-RetentionTTL).UnixMilli()
	if err := r.store.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10)); err != nil {
		r.logger.Warn("Failed to prune expired chat turns", zap.String("key", k), zap.Error(err))
	}
	if err := r.store.Expire(ctx, k, RetentionTTL, false); err != nil {
		r.logger.Warn("Failed to refresh chat history TTL", zap.String("key", k), zap.Error(err))
	}
	return nil
}

// History returns up to limit most recent messages, oldest first.
// Entries that fail to decode are skipped rather than failing the read.
func (r *Repository) History(ctx context.Context, userID, sessionID string, limit int) ([]Message, error) {
	members, err := r.store.ZRevRangeByScore(ctx, key(userID, sessionID), "+inf", "-inf", limit)
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}

	msgs := make([]Message, 0, len(members))
	for _, m := range members {
		var msg Message
		if err := json.Unmarshal([]byte(m), &msg); err != nil {
			r.logger.Warn("Skipping malformed chat history entry", zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	// ZRevRangeByScore is newest-first; callers render oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
