package repository

import (
	"errors"
	"time"

	"github.com/storefront-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoreEntryRepository 本地存储条目数据访问接口
type StoreEntryRepository interface {
	GetByKey(key string) (*models.StoreEntry, error)
	Upsert(entry *models.StoreEntry) error
	DeleteByKey(key string) error
	SumSizeExcluding(key string) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
	Transaction(fn func(repo StoreEntryRepository) error) error
}

// GormStoreEntryRepository GORM 实现
type GormStoreEntryRepository struct {
	db *gorm.DB
}

// NewStoreEntryRepository 创建本地存储条目仓库
func NewStoreEntryRepository(db *gorm.DB) *GormStoreEntryRepository {
	return &GormStoreEntryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStoreEntryRepository) WithTx(tx *gorm.DB) *GormStoreEntryRepository {
	if tx == nil {
		return r
	}
	return &GormStoreEntryRepository{db: tx}
}

// Transaction 在事务中执行
func (r *GormStoreEntryRepository) Transaction(fn func(repo StoreEntryRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// GetByKey 按键获取条目，不存在时返回 nil
func (r *GormStoreEntryRepository) GetByKey(key string) (*models.StoreEntry, error) {
	var entry models.StoreEntry
	if err := r.db.Where(map[string]interface{}{"key": key}).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Upsert 写入或覆盖条目
func (r *GormStoreEntryRepository) Upsert(entry *models.StoreEntry) error {
	if entry == nil {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "size", "expires_at", "updated_at"}),
	}).Create(entry).Error
}

// DeleteByKey 删除条目
func (r *GormStoreEntryRepository) DeleteByKey(key string) error {
	return r.db.Where(map[string]interface{}{"key": key}).Delete(&models.StoreEntry{}).Error
}

// SumSizeExcluding 统计除指定键外所有条目的字节数
func (r *GormStoreEntryRepository) SumSizeExcluding(key string) (int64, error) {
	var total int64
	err := r.db.Model(&models.StoreEntry{}).
		Not(map[string]interface{}{"key": key}).
		Select("COALESCE(SUM(size), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// DeleteExpired 删除已过期条目
func (r *GormStoreEntryRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&models.StoreEntry{})
	return result.RowsAffected, result.Error
}
