package handlers

import (
	"errors"

	"propledger/internal/dto"
	"propledger/internal/service"
	"propledger/pkg/upload"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UploadHandler struct {
	uploadService *service.UploadService
	logger        *zap.Logger
}

func NewUploadHandler(uploadService *service.UploadService, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		logger:        logger,
	}
}

// RequestGrant issues a presigned upload URL for a direct PUT to object
// storage. Nothing is persisted until the upload is confirmed.
func (h *UploadHandler) RequestGrant(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.UploadGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	grant, err := h.uploadService.RequestGrant(c.Context(), accountID, &req)
	if err != nil {
		var validationErr *upload.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": validationErr.Error(),
			})
		}
		if errors.Is(err, service.ErrInvalidEntity) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid entity reference",
			})
		}
		h.logger.Error("Failed to issue upload grant", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue upload grant",
		})
	}

	return c.JSON(grant)
}

// ConfirmUpload registers a completed transfer as a queued receipt.
func (h *UploadHandler) ConfirmUpload(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.ConfirmUploadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	receipt, err := h.uploadService.ConfirmUpload(c.Context(), accountID, &req)
	if err != nil {
		var validationErr *upload.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": validationErr.Error(),
			})
		case errors.Is(err, service.ErrForeignKey), errors.Is(err, service.ErrInvalidEntity):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid storage key",
			})
		case errors.Is(err, service.ErrObjectMissing):
			return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{
				"error": "Uploaded object not found; transfer must complete before confirm",
			})
		}
		h.logger.Error("Failed to confirm upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to confirm upload",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(receipt)
}
