package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"realtime-chat/internal/models"
)

const presenceKey = "chat:presence"

// RedisPresenceRepo keeps heartbeats in a sorted set scored by unix millis.
type RedisPresenceRepo struct {
	client *redis.Client
}

// NewRedisPresenceRepo parses url, connects and pings the server.
func NewRedisPresenceRepo(ctx context.Context, url string) (*RedisPresenceRepo, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisPresenceRepo{client: c}, nil
}

// NewRedisPresenceRepoFromClient wraps an existing client.
func NewRedisPresenceRepoFromClient(c *redis.Client) *RedisPresenceRepo {
	return &RedisPresenceRepo{client: c}
}

var _ PresenceRepository = (*RedisPresenceRepo)(nil)

func (r *RedisPresenceRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	return r.client.ZAdd(ctx, presenceKey, redis.Z{Score: float64(at.UnixMilli()), Member: userID}).Err()
}

func (r *RedisPresenceRepo) ListSince(ctx context.Context, since time.Time) ([]models.Presence, error) {
	res, err := r.client.ZRangeByScoreWithScores(ctx, presenceKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Presence, 0, len(res))
	for _, z := range res {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, models.Presence{UserID: id, LastSeen: time.UnixMilli(int64(z.Score)).UTC()})
	}
	return out, nil
}

// Prune drops heartbeats older than cutoff.
func (r *RedisPresenceRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.client.ZRemRangeByScore(ctx, presenceKey, "-inf", "("+strconv.FormatInt(cutoff.UnixMilli(), 10)).Result()
}

func (r *RedisPresenceRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisPresenceRepo) Close() error {
	return r.client.Close()
}
