// Package cache keeps hot lookups in Redis: resolved users for display and
// reverse-geocoded place labels.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"traveltales/models"
)

const (
	userTTL  = 24 * time.Hour
	placeTTL = 7 * 24 * time.Hour
)

type RedisCache struct {
	client *redis.Client
}

// Open connects to Redis and pings it.
func Open(ctx context.Context, addr string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("addr", addr).Int("db", db).Msg("Connected to Redis")
	return New(client), nil
}

func New(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func userKey(id string) string { return "user:" + id }

// placeKey rounds to five decimals (about a meter) so that nearby lookups share entries.
func placeKey(p models.Point) string {
	return fmt.Sprintf("geo:%.5f,%.5f", p.Latitude, p.Longitude)
}

func (c *RedisCache) GetUser(ctx context.Context, id string) (*models.User, bool) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("user_id", id).Msg("Redis user lookup failed")
		}
		return nil, false
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to unmarshal cached user")
		return nil, false
	}
	return &user, true
}

func (c *RedisCache) SetUser(ctx context.Context, user *models.User) {
	data, err := json.Marshal(user)
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to marshal user for cache")
		return
	}
	if err := c.client.Set(ctx, userKey(user.ID), data, userTTL).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to cache user")
	}
}

func (c *RedisCache) InvalidateUser(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("user_ids", ids).Msg("Failed to invalidate cached users")
	}
}

func (c *RedisCache) GetPlace(ctx context.Context, p models.Point) (string, bool) {
	label, err := c.client.Get(ctx, placeKey(p)).Result()
	if err != nil {
		return "", false
	}
	return label, true
}

func (c *RedisCache) SetPlace(ctx context.Context, p models.Point, label string) {
	if err := c.client.Set(ctx, placeKey(p), label, placeTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to cache place label")
	}
}

// Nop satisfies the same methods without a backend; used when REDIS_ADDR is unset.
type Nop struct{}

func (Nop) GetUser(context.Context, string) (*models.User, bool) { return nil, false }
func (Nop) SetUser(context.Context, *models.User) {}
func (Nop) InvalidateUser(context.Context, ...string) {}
func (Nop) GetPlace(context.Context, models.Point) (string, bool) { return "", false }
func (Nop) SetPlace(context.Context, models.Point, string) {}
