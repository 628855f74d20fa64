package localstore

import (
	"context"
	"time"

	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/repository"
)

// DBBackend 基于数据库表的存储后端
type DBBackend struct {
	repo       repository.StoreEntryRepository
	quotaBytes int64
	ttl        time.Duration
	now        func() time.Time
}

// NewDBBackend 创建数据库后端，quotaBytes <= 0 表示不限制，ttl <= 0 表示不过期
func NewDBBackend(repo repository.StoreEntryRepository, quotaBytes int64, ttl time.Duration) *DBBackend {
	return &DBBackend{
		repo:       repo,
		quotaBytes: quotaBytes,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Name 后端名称
func (b *DBBackend) Name() string {
	return "database"
}

// Read 读取条目，过期条目视为不存在
func (b *DBBackend) Read(_ context.Context, key string) (string, bool, error) {
	entry, err := b.repo.GetByKey(key)
	if err != nil {
		return "", false, err
	}
	if entry == nil {
		return "", false, nil
	}
	if entry.Expired(b.now()) {
		return "", false, nil
	}
	return entry.Value, true, nil
}

// Write 写入条目，超出配额时返回 ErrQuotaExceeded
func (b *DBBackend) Write(_ context.Context, key, value string) error {
	size := int64(len(value))
	now := b.now()
	entry := &models.StoreEntry{
		Key:       key,
		Value:     value,
		Size:      size,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if b.ttl > 0 {
		expiresAt := now.Add(b.ttl)
		entry.ExpiresAt = &expiresAt
	}
	return b.repo.Transaction(func(repo repository.StoreEntryRepository) error {
		if b.quotaBytes > 0 {
			used, err := repo.SumSizeExcluding(key)
			if err != nil {
				return err
			}
			if used+size > b.quotaBytes {
				return ErrQuotaExceeded
			}
		}
		return repo.Upsert(entry)
	})
}

// Delete 删除条目
func (b *DBBackend) Delete(_ context.Context, key string) error {
	return b.repo.DeleteByKey(key)
}

// EvictExpired 删除已过期条目
func (b *DBBackend) EvictExpired(_ context.Context) (int64, error) {
	return b.repo.DeleteExpired(b.now())
}
