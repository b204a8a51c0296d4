package redis

import (
	"context"

	"github.com/lumen-skin/lumenkb/internal/db"
)

// ZAdd adds a member with the given score.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRevRangeByScore returns members between max and min, newest first.
func (s *Store) ZRevRangeByScore(ctx context.Context, key, max, min string, limit int) ([]string, error) {
	var cmd = s.b().Zrevrangebyscore().Key(key).Max(max).Min(min).Build()
	if limit > 0 {
		cmd = s.b().Zrevrangebyscore().Key(key).Max(max).Min(min).Limit(0, int64(limit)).Build()
	}
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRangeByScore, Err: err}
	}
	return members, nil
}

// ZRemRangeByScore removes members with min <= score <= max.
func (s *Store) ZRemRangeByScore(ctx context.Context, key, min, max string) error {
	cmd := s.b().Zremrangebyscore().Key(key).Min(min).Max(max).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRemRangeByScore, Err: err}
	}
	return nil
}
