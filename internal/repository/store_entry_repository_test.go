package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/storefront-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupStoreEntryRepo(t *testing.T) (*GormStoreEntryRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return NewStoreEntryRepository(db), db
}

func TestStoreEntryUpsertOverwrites(t *testing.T) {
	repo, _ := setupStoreEntryRepo(t)

	if err := repo.Upsert(&models.StoreEntry{Key: "cart:a", Value: `[1]`, Size: 3}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := repo.Upsert(&models.StoreEntry{Key: "cart:a", Value: `[1,2]`, Size: 5}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	entry, err := repo.GetByKey("cart:a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if entry == nil || entry.Value != `[1,2]` || entry.Size != 5 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	missing, err := repo.GetByKey("cart:missing")
	if err != nil || missing != nil {
		t.Fatalf("missing key should return nil, nil; got %+v, %v", missing, err)
	}
}

func TestStoreEntrySumSizeExcluding(t *testing.T) {
	repo, _ := setupStoreEntryRepo(t)
	for key, size := range map[string]int64{"cart:a": 10, "cart:b": 20, "cart:c": 30} {
		if err := repo.Upsert(&models.StoreEntry{Key: key, Value: "x", Size: size}); err != nil {
			t.Fatalf("upsert %s failed: %v", key, err)
		}
	}
	total, err := repo.SumSizeExcluding("cart:b")
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if total != 40 {
		t.Fatalf("expected 40, got %d", total)
	}
}

func TestStoreEntryDeleteExpired(t *testing.T) {
	repo, _ := setupStoreEntryRepo(t)
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	entries := []*models.StoreEntry{
		{Key: "cart:old", Value: "x", ExpiresAt: &past},
		{Key: "cart:new", Value: "x", ExpiresAt: &future},
		{Key: "cart:forever", Value: "x"},
	}
	for _, entry := range entries {
		if err := repo.Upsert(entry); err != nil {
			t.Fatalf("upsert %s failed: %v", entry.Key, err)
		}
	}
	removed, err := repo.DeleteExpired(now)
	if err != nil {
		t.Fatalf("delete expired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if entry, _ := repo.GetByKey("cart:old"); entry != nil {
		t.Fatalf("expired entry should be gone")
	}
	if entry, _ := repo.GetByKey("cart:forever"); entry == nil {
		t.Fatalf("entry without expiry should remain")
	}
}

func TestStoreEntryTransactionRollsBack(t *testing.T) {
	repo, _ := setupStoreEntryRepo(t)
	boom := errors.New("boom")

	err := repo.Transaction(func(tx StoreEntryRepository) error {
		if err := tx.Upsert(&models.StoreEntry{Key: "cart:tx", Value: "x", Size: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if entry, _ := repo.GetByKey("cart:tx"); entry != nil {
		t.Fatalf("rolled back entry should not exist")
	}

	if err := repo.DeleteByKey("cart:none"); err != nil {
		t.Fatalf("delete of missing key should succeed: %v", err)
	}
}
