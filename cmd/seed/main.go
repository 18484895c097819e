// Seed provisions a demo account with a few queued receipts and prints a
// bearer token for driving the API locally.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"propledger/internal/database"
	"propledger/internal/models"
	"propledger/internal/repository"
	"propledger/migrations"
	"propledger/pkg/auth"
	"propledger/pkg/config"
	"propledger/pkg/logger"
	"propledger/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const demoEmail = "demo@propledger.local"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.NewMigrator(db, migrations.FS, appLogger).Run(ctx); err != nil {
		appLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	accountRepo := repository.NewAccountRepository(db, appLogger)
	user, err := demoUser(ctx, accountRepo)
	if err != nil {
		appLogger.Fatal("Failed to provision demo account", zap.Error(err))
	}

	receiptRepo := repository.NewReceiptRepository(db, appLogger)
	propertyID := uuid.New()
	propertyName := "12 Elm Street"

	samples := []struct {
		fileName string
		size     int64
	}{
		{"home-depot-faucet.jpg", 482_113},
		{"ace-hardware-paint.jpg", 1_204_553},
		{"lowes-water-heater.png", 2_933_671},
	}

	for i, sample := range samples {
		receipt := &models.Receipt{
			ID:            uuid.New(),
			AccountID:     user.AccountID,
			ContentType:   "image/jpeg",
			FileSizeBytes: sample.size,
			StorageKey: fmt.Sprintf("accounts/%s/receipt/queue/receipts/%s.jpg",
				user.AccountID, uuid.New()),
			OriginalFileName: sample.fileName,
			PropertyID:       &propertyID,
			PropertyName:     &propertyName,
			CreatedAt:        time.Now().UTC().Add(-time.Duration(i) * time.Minute),
		}
		if err := receiptRepo.Create(ctx, receipt); err != nil {
			appLogger.Fatal("Failed to seed receipt", zap.Error(err))
		}
		appLogger.Info("Seeded receipt",
			zap.String("id", receipt.ID.String()),
			zap.String("file", sample.fileName),
		)
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration)
	token, err := jwtManager.GenerateToken(user.ID.String(), user.AccountID.String())
	if err != nil {
		appLogger.Fatal("Failed to generate token", zap.Error(err))
	}

	fmt.Printf("\naccount_id: %s\nuser_id:    %s\ntoken:      %s\n", user.AccountID, user.ID, token)
}

// demoUser reuses the demo operator across runs so repeated seeding only adds
// receipts.
func demoUser(ctx context.Context, repo *repository.AccountRepository) (*models.User, error) {
	user, err := repo.GetUserByEmail(ctx, demoEmail)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	account := &models.Account{
		ID:        uuid.New(),
		Name:      "Demo Property Management",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	user = &models.User{
		ID:        uuid.New(),
		AccountID: account.ID,
		Email:     demoEmail,
		FullName:  "Demo Operator",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
