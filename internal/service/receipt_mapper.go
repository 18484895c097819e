package service

import (
	"context"
	"time"

	"propledger/internal/dto"
	"propledger/internal/models"
	"propledger/internal/storage"

	"go.uber.org/zap"
)

// viewURLTTL bounds how long a presigned view link stays usable. Clients
// re-fetch the receipt when a link goes stale.
const viewURLTTL = 15 * time.Minute

// buildReceiptResponse converts a receipt row into its wire form, attaching
// presigned view URLs. A presign failure degrades to an empty URL rather
// than failing the whole response.
func buildReceiptResponse(ctx context.Context, store storage.ObjectStorage, receipt *models.Receipt, logger *zap.Logger) *dto.ReceiptResponse {
	resp := &dto.ReceiptResponse{
		ID:               receipt.ID.String(),
		ContentType:      receipt.ContentType,
		FileSizeBytes:    receipt.FileSizeBytes,
		StorageKey:       receipt.StorageKey,
		OriginalFileName: receipt.OriginalFileName,
		CreatedAt:        receipt.CreatedAt.Format(time.RFC3339),
	}

	if receipt.PropertyID != nil {
		resp.PropertyID = receipt.PropertyID.String()
	}
	if receipt.PropertyName != nil {
		resp.PropertyName = *receipt.PropertyName
	}
	if receipt.ProcessedAt != nil {
		resp.ProcessedAt = receipt.ProcessedAt.Format(time.RFC3339)
	}

	viewURL, err := store.PresignGet(ctx, receipt.StorageKey, viewURLTTL)
	if err != nil {
		logger.Warn("Failed to presign view URL",
			zap.String("receipt_id", receipt.ID.String()),
			zap.Error(err),
		)
	} else {
		resp.ViewURL = viewURL
	}

	if receipt.ThumbnailStorageKey != nil {
		resp.ThumbnailStorageKey = *receipt.ThumbnailStorageKey
		thumbURL, err := store.PresignGet(ctx, *receipt.ThumbnailStorageKey, viewURLTTL)
		if err != nil {
			logger.Warn("Failed to presign thumbnail URL",
				zap.String("receipt_id", receipt.ID.String()),
				zap.Error(err),
			)
		} else {
			resp.ThumbnailURL = thumbURL
		}
	}

	return resp
}
