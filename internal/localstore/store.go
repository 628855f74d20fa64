package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/storefront-next/internal/logger"
)

// ErrQuotaExceeded 存储空间不足
var ErrQuotaExceeded = errors.New("local store quota exceeded")

// Backend 本地存储后端
type Backend interface {
	Name() string
	Read(ctx context.Context, key string) (string, bool, error)
	Write(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	EvictExpired(ctx context.Context) (int64, error)
}

// Store 带 JSON 编解码的键值存储，任何错误都不向调用方抛出
type Store struct {
	backend Backend
}

// New 创建本地存储
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Set 序列化并写入，失败时返回 false
func (s *Store) Set(ctx context.Context, key string, value interface{}) bool {
	key = strings.TrimSpace(key)
	if s == nil || s.backend == nil || key == "" {
		return false
	}
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warnw("local_store_encode_failed", "key", key, "error", err)
		return false
	}
	err = s.backend.Write(ctx, key, string(payload))
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		logger.Warnw("local_store_write_failed", "backend", s.backend.Name(), "key", key, "error", err)
		return false
	}

	evicted, evictErr := s.backend.EvictExpired(ctx)
	if evictErr != nil {
		logger.Warnw("local_store_evict_failed", "backend", s.backend.Name(), "error", evictErr)
	}
	if err := s.backend.Write(ctx, key, string(payload)); err != nil {
		logger.Warnw("local_store_quota_exceeded",
			"backend", s.backend.Name(),
			"key", key,
			"size", len(payload),
			"evicted", evicted,
			"error", err,
		)
		return false
	}
	return true
}

// Get 读取并反序列化到 dest，失败时 dest 保持原值并返回 false
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	key = strings.TrimSpace(key)
	if s == nil || s.backend == nil || key == "" {
		return false
	}
	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return false
	}
	raw, ok, err := s.backend.Read(ctx, key)
	if err != nil {
		logger.Warnw("local_store_read_failed", "backend", s.backend.Name(), "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	decoded := reflect.New(target.Elem().Type())
	if err := json.Unmarshal([]byte(raw), decoded.Interface()); err != nil {
		logger.Warnw("local_store_decode_failed", "key", key, "error", err)
		return false
	}
	target.Elem().Set(decoded.Elem())
	return true
}

// Remove 删除键，失败仅记录日志
func (s *Store) Remove(ctx context.Context, key string) {
	key = strings.TrimSpace(key)
	if s == nil || s.backend == nil || key == "" {
		return
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		logger.Warnw("local_store_remove_failed", "backend", s.backend.Name(), "key", key, "error", err)
	}
}

// EvictExpired 清理过期条目
func (s *Store) EvictExpired(ctx context.Context) int64 {
	if s == nil || s.backend == nil {
		return 0
	}
	n, err := s.backend.EvictExpired(ctx)
	if err != nil {
		logger.Warnw("local_store_evict_failed", "backend", s.backend.Name(), "error", err)
		return 0
	}
	return n
}
