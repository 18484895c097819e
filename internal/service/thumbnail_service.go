package service

import (
	"bytes"
	"context"
	"time"

	"propledger/internal/metrics"
	"propledger/internal/models"
	"propledger/internal/storage"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// thumbnailBox is the bounding box thumbnails are fitted into.
const thumbnailBox = 480

// decodableTypes are the content types imaging can decode. WebP uploads keep
// a null thumbnail and the client falls back to the original.
var decodableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// ThumbnailService materializes queue thumbnails after an upload is
// confirmed. Everything here is best effort: a failure logs, bumps a
// counter, and leaves the receipt without a thumbnail.
type ThumbnailService struct {
	receipts ReceiptStore
	store    storage.ObjectStorage
	timeout  time.Duration
	logger   *zap.Logger
}

func NewThumbnailService(receipts ReceiptStore, store storage.ObjectStorage, logger *zap.Logger) *ThumbnailService {
	return &ThumbnailService{
		receipts: receipts,
		store:    store,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// GenerateAsync kicks thumbnail generation in the background and returns
// immediately. Confirm does not wait on it.
func (s *ThumbnailService) GenerateAsync(receipt *models.Receipt, thumbKey string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.generate(ctx, receipt, thumbKey); err != nil {
			metrics.ThumbnailFailures.Inc()
			s.logger.Warn("Thumbnail generation failed",
				zap.String("receipt_id", receipt.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *ThumbnailService) generate(ctx context.Context, receipt *models.Receipt, thumbKey string) error {
	if !decodableTypes[receipt.ContentType] {
		s.logger.Debug("Skipping thumbnail for undecodable type",
			zap.String("receipt_id", receipt.ID.String()),
			zap.String("content_type", receipt.ContentType),
		)
		return nil
	}

	original, err := s.store.Get(ctx, receipt.StorageKey)
	if err != nil {
		return err
	}
	defer original.Close()

	img, err := imaging.Decode(original, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}

	thumb := imaging.Fit(img, thumbnailBox, thumbnailBox, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return err
	}

	if err := s.store.Put(ctx, thumbKey, "image/jpeg", &buf); err != nil {
		return err
	}

	if err := s.receipts.SetThumbnailKey(ctx, receipt.ID, thumbKey); err != nil {
		return err
	}

	s.logger.Debug("Thumbnail generated",
		zap.String("receipt_id", receipt.ID.String()),
		zap.String("thumbnail_key", thumbKey),
	)
	return nil
}
