package service

import (
	"context"

	"propledger/internal/models"
	"propledger/internal/realtime"

	"github.com/google/uuid"
)

// ReceiptStore is the persistence surface the services need for receipts.
// Satisfied by repository.ReceiptRepository.
type ReceiptStore interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Receipt, error)
	ListUnprocessed(ctx context.Context, accountID uuid.UUID) ([]*models.Receipt, error)
	SetThumbnailKey(ctx context.Context, id uuid.UUID, key string) error
	Delete(ctx context.Context, accountID, id uuid.UUID) error
}

// ExpenseStore is the persistence surface for expenses. Satisfied by
// repository.ExpenseRepository.
type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	CreateFromReceipt(ctx context.Context, expense *models.Expense) error
	FindMatch(ctx context.Context, accountID, propertyID uuid.UUID, amount float64, dateISO string) (*models.Expense, error)
}

// Broadcaster pushes queue mutations to the account's connected sessions.
// Satisfied by realtime.Hub.
type Broadcaster interface {
	Broadcast(accountID uuid.UUID, event realtime.Event)
}
