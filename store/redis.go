package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisCache stores sonic encoded values. All keys written through it are
// tracked in a set so Keys does not need SCAN.
type RedisCache[S any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache[S any](cfg RedisConfig) *RedisCache[S] {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheWithClient[S](client, cfg)
}

func NewRedisCacheWithClient[S any](client *redis.Client, cfg RedisConfig) *RedisCache[S] {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "formcollect:"
	}
	return &RedisCache[S]{client: client, prefix: prefix, ttl: cfg.TTL}
}

func (r *RedisCache[S]) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache[S]) setKey() string {
	return r.prefix + "keys"
}

func (r *RedisCache[S]) Set(ctx context.Context, key string, val S) error {
	raw, err := sonic.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := r.client.SAdd(ctx, r.setKey(), key).Err(); err != nil {
		return fmt.Errorf("failed to index %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	var zero S
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	var val S
	if err := sonic.Unmarshal(raw, &val); err != nil {
		return zero, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisCache[S]) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return r.client.SRem(ctx, r.setKey(), key).Err()
}

func (r *RedisCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys drops index entries whose value has expired.
func (r *RedisCache[S]) Keys(ctx context.Context, prefix string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	keys := make([]string, 0, len(members))
	for _, k := range members {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		ok, err := r.Exists(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			r.client.SRem(ctx, r.setKey(), k)
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

func (r *RedisCache[S]) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache[S]) Close() error {
	return r.client.Close()
}
