package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func baseConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LocalStore.Backend = "database"
	cfg.LocalStore.TTLHours = 24
	cfg.Gateway.BaseURL = "http://127.0.0.1:1"
	cfg.Gateway.TimeoutMS = 100
	cfg.Stock.TimeoutMS = 100
	cfg.Stock.Concurrency = 2
	cfg.Session.IdleMinutes = 30
	cfg.UserJWT.SecretKey = "container-test-secret"
	return cfg
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

func TestNewContainerUsesDatabaseBackend(t *testing.T) {
	db := openTestDB(t)
	c := NewContainer(baseConfig(), db)
	t.Cleanup(c.Close)

	if c.StoreEntryRepo == nil || c.LocalStore == nil || c.Carts == nil {
		t.Fatalf("container not fully wired: %+v", c)
	}
	if c.QueueClient.Enabled() {
		t.Fatalf("queue should stay disabled")
	}
	if !c.LocalStore.Set(context.Background(), "cart:c1", []string{"p1"}) {
		t.Fatalf("set should succeed")
	}
	var count int64
	if err := db.Model(&models.StoreEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stored entry, got %d", count)
	}
}

func TestNewContainerFallsBackToRedisWithoutDatabase(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("parse port failed: %v", err)
	}
	cfg := baseConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port, Prefix: "sf"}

	c := NewContainer(cfg, nil)
	t.Cleanup(c.Close)

	if c.StoreEntryRepo != nil {
		t.Fatalf("repository should be nil without database")
	}
	if !c.LocalStore.Set(context.Background(), "cart:c2", []string{"p1"}) {
		t.Fatalf("set should succeed")
	}
	if !mr.Exists("sf:cart:c2") {
		t.Fatalf("expected redis key, got keys %v", mr.Keys())
	}
}

func TestNewContainerWithoutStorageDegrades(t *testing.T) {
	c := NewContainer(baseConfig(), nil)
	t.Cleanup(c.Close)

	if c.LocalStore.Set(context.Background(), "cart:c3", []string{"p1"}) {
		t.Fatalf("set should fail without any backend")
	}
	session := c.Carts.Get("c3")
	if session == nil || session.ID() != "c3" {
		t.Fatalf("registry should still hand out sessions")
	}
}

func TestNewContainerInvalidPricingFallsBackToDefaults(t *testing.T) {
	cfg := baseConfig()
	cfg.Pricing.MinInstallment = "-1"
	c := NewContainer(cfg, openTestDB(t))
	t.Cleanup(c.Close)

	if c.Pricing == nil {
		t.Fatalf("pricing calculator should fall back to defaults")
	}
}
