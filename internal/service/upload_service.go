package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"propledger/internal/dto"
	"propledger/internal/metrics"
	"propledger/internal/models"
	"propledger/internal/realtime"
	"propledger/internal/storage"
	"propledger/pkg/upload"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidEntity = errors.New("invalid entity reference")
	ErrForeignKey    = errors.New("storage key does not belong to this account")
	ErrObjectMissing = errors.New("uploaded object not found in storage")
)

// grantTTL is how long a presigned upload URL stays valid. An abandoned
// transfer simply lets the grant expire; nothing is persisted until Confirm.
const grantTTL = 15 * time.Minute

var entitySlugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// UploadService issues upload grants and confirms completed transfers into
// receipt records. The three-step protocol keeps file bytes out of this
// server entirely: clients PUT straight against object storage.
type UploadService struct {
	receipts ReceiptStore
	store    storage.ObjectStorage
	thumbs   *ThumbnailService
	hub      Broadcaster
	logger   *zap.Logger
}

func NewUploadService(
	receipts ReceiptStore,
	store storage.ObjectStorage,
	thumbs *ThumbnailService,
	hub Broadcaster,
	logger *zap.Logger,
) *UploadService {
	return &UploadService{
		receipts: receipts,
		store:    store,
		thumbs:   thumbs,
		hub:      hub,
		logger:   logger,
	}
}

// RequestGrant validates the candidate file and returns a presigned PUT URL
// plus the issuer-generated storage keys. The client never chooses keys.
func (s *UploadService) RequestGrant(ctx context.Context, accountID uuid.UUID, req *dto.UploadGrantRequest) (*dto.UploadGrantResponse, error) {
	if err := upload.ValidateFile(req.ContentType, req.FileSizeBytes); err != nil {
		return nil, err
	}
	if !entitySlugRe.MatchString(req.EntityType) || !entitySlugRe.MatchString(strings.ToLower(req.EntityID)) {
		return nil, ErrInvalidEntity
	}

	fileID := uuid.New()
	storageKey, thumbKey := buildStorageKeys(accountID, req.EntityType, req.EntityID, fileID, req.ContentType)

	uploadURL, err := s.store.PresignPut(ctx, storageKey, req.ContentType, grantTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue upload grant: %w", err)
	}

	metrics.UploadGrantsIssued.Inc()
	s.logger.Debug("Upload grant issued",
		zap.String("account_id", accountID.String()),
		zap.String("storage_key", storageKey),
	)

	return &dto.UploadGrantResponse{
		UploadURL:           uploadURL,
		StorageKey:          storageKey,
		ThumbnailStorageKey: thumbKey,
		ExpiresAt:           time.Now().UTC().Add(grantTTL).Format(time.RFC3339),
	}, nil
}

// ConfirmUpload turns a completed transfer into a receipt record. The object
// is verified to exist in storage before anything is written, so a confirm
// without a prior successful transfer is rejected instead of creating a
// receipt that points at nothing.
func (s *UploadService) ConfirmUpload(ctx context.Context, accountID uuid.UUID, req *dto.ConfirmUploadRequest) (*dto.ReceiptResponse, error) {
	if err := upload.ValidateFile(req.ContentType, req.FileSizeBytes); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(req.StorageKey, accountKeyPrefix(accountID)) {
		return nil, ErrForeignKey
	}

	exists, err := s.store.Exists(ctx, req.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to verify uploaded object: %w", err)
	}
	if !exists {
		return nil, ErrObjectMissing
	}

	receipt := &models.Receipt{
		ID:               uuid.New(),
		AccountID:        accountID,
		ContentType:      req.ContentType,
		FileSizeBytes:    req.FileSizeBytes,
		StorageKey:       req.StorageKey,
		OriginalFileName: req.OriginalFileName,
		CreatedAt:        time.Now().UTC(),
	}
	if req.PropertyID != "" {
		propertyID, err := uuid.Parse(req.PropertyID)
		if err != nil {
			return nil, ErrInvalidEntity
		}
		receipt.PropertyID = &propertyID
	}

	if err := s.receipts.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to create receipt: %w", err)
	}

	metrics.UploadsConfirmed.Inc()
	s.logger.Info("Upload confirmed",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.Int64("size_bytes", receipt.FileSizeBytes),
	)

	resp := buildReceiptResponse(ctx, s.store, receipt, s.logger)
	s.hub.Broadcast(accountID, realtime.ReceiptAdded(resp))

	// Thumbnail materialization is best effort; the row keeps a null
	// thumbnail key until (and unless) generation succeeds.
	if s.thumbs != nil && req.ThumbnailStorageKey != "" &&
		strings.HasPrefix(req.ThumbnailStorageKey, accountKeyPrefix(accountID)) {
		s.thumbs.GenerateAsync(receipt, req.ThumbnailStorageKey)
	}

	return resp, nil
}

func accountKeyPrefix(accountID uuid.UUID) string {
	return "accounts/" + accountID.String() + "/"
}

// buildStorageKeys derives the deterministic, tenant-scoped object paths for
// an upload. The thumbnail lives beside the original under a thumbs/
// segment and is always JPEG.
func buildStorageKeys(accountID uuid.UUID, entityType, entityID string, fileID uuid.UUID, contentType string) (string, string) {
	base := path.Join(
		"accounts", accountID.String(),
		entityType, entityID,
		"receipts",
	)
	storageKey := path.Join(base, fileID.String()+upload.Ext(contentType))
	thumbKey := path.Join(base, "thumbs", fileID.String()+".jpg")
	return storageKey, thumbKey
}
