package localstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storefront-next/internal/cache"

	"github.com/redis/go-redis/v9"
)

// RedisBackend 基于 Redis 的存储后端，过期由 Redis TTL 负责
type RedisBackend struct {
	client        *redis.Client
	ttl           time.Duration
	maxValueBytes int64
}

// NewRedisBackend 创建 Redis 后端，maxValueBytes <= 0 表示不限制单值大小
func NewRedisBackend(client *redis.Client, ttl time.Duration, maxValueBytes int64) *RedisBackend {
	return &RedisBackend{
		client:        client,
		ttl:           ttl,
		maxValueBytes: maxValueBytes,
	}
}

// Name 后端名称
func (b *RedisBackend) Name() string {
	return "redis"
}

// Read 读取条目
func (b *RedisBackend) Read(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, cache.BuildKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Write 写入条目，Redis 内存不足时返回 ErrQuotaExceeded
func (b *RedisBackend) Write(ctx context.Context, key, value string) error {
	if b.maxValueBytes > 0 && int64(len(value)) > b.maxValueBytes {
		return ErrQuotaExceeded
	}
	ttl := b.ttl
	if ttl < 0 {
		ttl = 0
	}
	err := b.client.Set(ctx, cache.BuildKey(key), value, ttl).Err()
	if err != nil && isOutOfMemory(err) {
		return errors.Join(ErrQuotaExceeded, err)
	}
	return err
}

// Delete 删除条目
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, cache.BuildKey(key)).Err()
}

// EvictExpired Redis 自动清理过期键
func (b *RedisBackend) EvictExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func isOutOfMemory(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM")
}
