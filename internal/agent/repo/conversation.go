package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	errx "github.com/Chative-medical-agent/server/internal/core/error"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

// RedisSessionStore keeps each user's history in a capped Redis list.
type RedisSessionStore struct {
	rdb      redis.Cmdable
	maxTurns int
	ttl      time.Duration
}

func NewRedisSessionStore(rdb redis.Cmdable, maxTurns int, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, maxTurns: normalizeMaxTurns(maxTurns), ttl: ttl}
}

func (r *RedisSessionStore) sessionKey(userID string) string {
	return fmt.Sprintf("session:%s:messages", userID)
}

// Append pushes turns, trims to the cap and refreshes the TTL in one
// MULTI/EXEC so concurrent requests for a user cannot interleave.
func (r *RedisSessionStore) Append(ctx context.Context, userID string, turns ...*schema.Message) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]any, 0, len(turns))
	for _, m := range turns {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("user_id", userID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}
	key := r.sessionKey(userID)

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append session turns to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionStore) History(ctx context.Context, userID string) ([]*schema.Message, error) {
	key := r.sessionKey(userID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []*schema.Message{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("user_id", userID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisSessionStore) Clear(ctx context.Context, userID string) error {
	key := r.sessionKey(userID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)
