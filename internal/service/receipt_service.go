package service

import (
	"context"
	"errors"
	"fmt"

	"propledger/internal/dto"
	"propledger/internal/metrics"
	"propledger/internal/realtime"
	"propledger/internal/repository"
	"propledger/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrReceiptNotFound = errors.New("receipt not found")

// ReceiptService serves the unprocessed queue and single-receipt reads, and
// handles hard deletion. Queue mutations are broadcast to every connected
// session of the account.
type ReceiptService struct {
	receipts ReceiptStore
	store    storage.ObjectStorage
	hub      Broadcaster
	logger   *zap.Logger
}

func NewReceiptService(
	receipts ReceiptStore,
	store storage.ObjectStorage,
	hub Broadcaster,
	logger *zap.Logger,
) *ReceiptService {
	return &ReceiptService{
		receipts: receipts,
		store:    store,
		hub:      hub,
		logger:   logger,
	}
}

// ListUnprocessed returns the account's queue, newest first. Ordering is
// owned here; clients render the list as-is.
func (s *ReceiptService) ListUnprocessed(ctx context.Context, accountID uuid.UUID) (*dto.UnprocessedReceiptsResponse, error) {
	receipts, err := s.receipts.ListUnprocessed(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed receipts: %w", err)
	}

	items := make([]dto.ReceiptResponse, len(receipts))
	for i, receipt := range receipts {
		items[i] = *buildReceiptResponse(ctx, s.store, receipt, s.logger)
	}

	return &dto.UnprocessedReceiptsResponse{
		Items:      items,
		TotalCount: len(items),
	}, nil
}

func (s *ReceiptService) Get(ctx context.Context, accountID, id uuid.UUID) (*dto.ReceiptResponse, error) {
	receipt, err := s.receipts.GetByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReceiptNotFound
		}
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	return buildReceiptResponse(ctx, s.store, receipt, s.logger), nil
}

// Delete hard-removes the receipt and its stored objects. No expense is
// created; the removal is pushed to all sessions.
func (s *ReceiptService) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	receipt, err := s.receipts.GetByID(ctx, accountID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReceiptNotFound
		}
		return fmt.Errorf("failed to load receipt: %w", err)
	}

	if err := s.receipts.Delete(ctx, accountID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReceiptNotFound
		}
		return fmt.Errorf("failed to delete receipt: %w", err)
	}

	// Storage cleanup is best effort; an orphaned object is preferable to a
	// failed delete after the row is gone.
	if err := s.store.Delete(ctx, receipt.StorageKey); err != nil {
		s.logger.Warn("Failed to delete receipt object",
			zap.String("storage_key", receipt.StorageKey),
			zap.Error(err),
		)
	}
	if receipt.ThumbnailStorageKey != nil {
		if err := s.store.Delete(ctx, *receipt.ThumbnailStorageKey); err != nil {
			s.logger.Warn("Failed to delete thumbnail object",
				zap.String("storage_key", *receipt.ThumbnailStorageKey),
				zap.Error(err),
			)
		}
	}

	metrics.ReceiptsDeleted.Inc()
	s.logger.Info("Receipt deleted",
		zap.String("receipt_id", id.String()),
		zap.String("account_id", accountID.String()),
	)

	s.hub.Broadcast(accountID, realtime.ReceiptRemoved(id.String()))
	return nil
}
