// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maloune/storefront/internal/config"
	"github.com/maloune/storefront/internal/domain/cart"
	"github.com/maloune/storefront/internal/domain/checkout"
	"github.com/maloune/storefront/internal/domain/order"
	"github.com/maloune/storefront/internal/domain/payment"
	"github.com/maloune/storefront/internal/domain/product"
	"github.com/maloune/storefront/internal/domain/supplier"
	"github.com/maloune/storefront/internal/infrastructure/database/postgres"
	"github.com/maloune/storefront/internal/infrastructure/database/redis"
	"github.com/maloune/storefront/internal/interfaces/http"
	"github.com/maloune/storefront/internal/interfaces/http/handlers"
	"github.com/maloune/storefront/internal/interfaces/http/routes"
	"github.com/maloune/storefront/internal/pkg/auth"
	"github.com/maloune/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("Starting %s", cfg.App.Name)

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	if err := db.Health(); err != nil {
		log.WithError(err).Fatal("Database health check failed")
	}
	if err := redisClient.Health(); err != nil {
		log.WithError(err).Fatal("Redis health check failed")
	}

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(cfg.Catalog.Locales); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
		if err := migration.GetTableInfo(); err != nil {
			log.WithError(err).Warn("Failed to read table info")
		}
	}

	// Domain services
	products := product.NewGormStore(db.GetDB())
	carts := cart.NewService(
		cart.NewRedisStorage(redisClient.GetClient(), cfg.Cart.TTL, cfg.Cart.CompletionTTL),
		product.NewCatalog(products, cfg.Cart.DefaultMaxQuantity),
		cfg,
		log,
	)

	gateway := payment.NewStripeGateway(cfg, log)
	initiator := checkout.NewInitiator(gateway, carts, cfg, log)
	orders := order.NewGormRepository(db.GetDB())
	reconciler := order.NewReconciler(gateway, orders, carts, cfg.Payment.Provider, cfg.Catalog.DefaultLocale, log)

	var tokens supplier.TokenCache
	if cfg.Supplier.TokenCache == "redis" {
		tokens = supplier.NewRedisTokenCache(redisClient.GetClient())
	} else {
		tokens = supplier.NewMemoryTokenCache()
	}
	importer := product.NewImporter(products, supplier.NewClient(cfg, tokens, log), cfg, log)

	server := http.NewServer(cfg, http.Dependencies{
		Handlers: routes.Handlers{
			Cart:     handlers.NewCartHandler(carts, log),
			Checkout: handlers.NewCheckoutHandler(carts, initiator, log),
			Order:    handlers.NewOrderHandler(orders, log),
			Webhook:  handlers.NewWebhookHandler(reconciler, log),
			Import:   handlers.NewImportHandler(importer, log),
		},
		JWT:      auth.NewJWTManager(cfg),
		Redis:    redisClient.GetClient(),
		Database: db,
		Cache:    redisClient,
	}, log)

	log.Info("All systems operational")

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	log.Info("Server shutdown completed")
}
