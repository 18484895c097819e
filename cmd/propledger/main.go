package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"propledger/internal/api"
	"propledger/internal/api/handlers"
	"propledger/internal/database"
	"propledger/internal/realtime"
	"propledger/internal/repository"
	"propledger/internal/service"
	"propledger/internal/storage"
	"propledger/migrations"
	"propledger/pkg/auth"
	"propledger/pkg/config"
	"propledger/pkg/logger"
	"propledger/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting propledger receipt pipeline")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, migrations.FS, appLogger).Run(ctx); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize object storage
	objectStore, err := storage.NewS3Storage(ctx, storage.S3Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Initialize repositories
	receiptRepo := repository.NewReceiptRepository(db, appLogger)
	expenseRepo := repository.NewExpenseRepository(db, appLogger)

	// Initialize realtime hub
	hub := realtime.NewHub(appLogger)
	go hub.Run()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)

	// Initialize services
	thumbService := service.NewThumbnailService(receiptRepo, objectStore, appLogger)
	uploadService := service.NewUploadService(receiptRepo, objectStore, thumbService, hub, appLogger)
	receiptService := service.NewReceiptService(receiptRepo, objectStore, hub, appLogger)
	expenseService := service.NewExpenseService(expenseRepo, hub, appLogger)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadService, appLogger)
	receiptHandler := handlers.NewReceiptHandler(receiptService, appLogger)
	expenseHandler := handlers.NewExpenseHandler(expenseService, appLogger)
	wsHandler := handlers.NewWSHandler(hub, appLogger)

	// Setup router
	app := api.SetupRouter(uploadHandler, receiptHandler, expenseHandler, wsHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
