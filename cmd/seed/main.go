package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/storefront-next/internal/auth"
	"github.com/storefront-next/internal/cart"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/provider"

	"github.com/google/uuid"
)

// 写入一份演示用匿名购物车，并签发一个本地调试用的用户令牌
func main() {
	var sessionID string
	var userID uint
	flag.StringVar(&sessionID, "session", "", "session id to seed (generated when empty)")
	flag.UintVar(&userID, "user", 1, "user id for the issued token")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	db, err := provider.OpenDatabase(cfg)
	if err != nil {
		stdLog.Fatalf("open local store database failed: %v", err)
	}
	container := provider.NewContainer(cfg, db)
	defer container.Close()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	promo := models.MustMoney("79.90")
	lines := []models.LineItem{
		models.Product{
			ID:            "demo-tee",
			Name:          "Demo T-Shirt",
			CategoryLabel: "Apparel",
			ListPrice:     models.MustMoney("99.90"),
			PromoPrice:    &promo,
			Stock:         10,
		}.ToLineItem(2),
		models.Product{
			ID:            "demo-mug",
			Name:          "Demo Mug",
			CategoryLabel: "Home",
			ListPrice:     models.MustMoney("35.00"),
			Stock:         4,
		}.ToLineItem(1),
	}
	if !container.LocalStore.Set(context.Background(), cart.LocalKey(sessionID), lines) {
		stdLog.Fatalf("write demo cart failed")
	}

	token, err := auth.NewJWTAuthenticator(cfg.UserJWT.SecretKey).IssueToken(userID, "demo@example.com", 24*time.Hour)
	if err != nil {
		stdLog.Fatalf("issue token failed: %v", err)
	}

	fmt.Printf("session: %s\n", sessionID)
	fmt.Printf("token:   %s\n", token)
}
