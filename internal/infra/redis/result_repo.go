package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/healer/internal/core/domain"
)

// ResultRepo implements storage.ResultRepository using Redis.
//
// Each node has a sorted set of result IDs scored by completion time in
// milliseconds; result bodies are stored as JSON strings under their own key.
type ResultRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewResultRepo creates a Redis-backed result repository. Result bodies expire
// after ttl; zero keeps them until pruned.
func NewResultRepo(client *Client, ttl time.Duration) *ResultRepo {
	return &ResultRepo{
		rdb: client.rdb,
		ttl: ttl,
	}
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// Save stores a result and indexes it by completion time.
func (r *ResultRepo) Save(ctx context.Context, res *domain.RecoveryResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal recovery result: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, resultKey(res.NodeID, res.ID), data, r.ttl)
	pipe.ZAdd(ctx, resultsKey(res.NodeID), redis.Z{
		Score:  score(res.Timestamp),
		Member: res.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save recovery result: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest results, oldest first. IDs whose
// body has expired are dropped from the index.
func (r *ResultRepo) Recent(ctx context.Context, nodeID string, limit int) ([]*domain.RecoveryResult, error) {
	if limit <= 0 {
		limit = 100
	}

	ids, err := r.rdb.ZRange(ctx, resultsKey(nodeID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = resultKey(nodeID, id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	out := make([]*domain.RecoveryResult, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var res domain.RecoveryResult
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recovery result %s: %w", ids[i], err)
		}
		out = append(out, &res)
	}

	if len(stale) > 0 {
		r.rdb.ZRem(ctx, resultsKey(nodeID), stale...)
	}
	return out, nil
}

// Count returns the number of indexed results for a node.
func (r *ResultRepo) Count(ctx context.Context, nodeID string) (int, error) {
	n, err := r.rdb.ZCard(ctx, resultsKey(nodeID)).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(n), nil
}

// DeleteOlderThan removes results completed before the cutoff.
func (r *ResultRepo) DeleteOlderThan(ctx context.Context, nodeID string, before time.Time) (int64, error) {
	key := resultsKey(nodeID)
	cutoff := "(" + strconv.FormatInt(before.UnixMilli(), 10)

	ids, err := r.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = resultKey(nodeID, id)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	removed := pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune recovery results: %w", err)
	}
	return removed.Val(), nil
}
