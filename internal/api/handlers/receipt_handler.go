package handlers

import (
	"errors"

	"propledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	receiptService *service.ReceiptService
	logger         *zap.Logger
}

func NewReceiptHandler(receiptService *service.ReceiptService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		logger:         logger,
	}
}

// ListUnprocessed returns the account's receipt queue, newest first.
func (h *ReceiptHandler) ListUnprocessed(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	queue, err := h.receiptService.ListUnprocessed(c.Context(), accountID)
	if err != nil {
		h.logger.Error("Failed to list unprocessed receipts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list receipts",
		})
	}

	return c.JSON(queue)
}

// Get returns a single receipt with a time-boxed view URL.
func (h *ReceiptHandler) Get(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt id",
		})
	}

	receipt, err := h.receiptService.Get(c.Context(), accountID, id)
	if err != nil {
		if errors.Is(err, service.ErrReceiptNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		}
		h.logger.Error("Failed to load receipt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load receipt",
		})
	}

	return c.JSON(receipt)
}

// Delete hard-removes a receipt from the queue without creating an expense.
func (h *ReceiptHandler) Delete(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt id",
		})
	}

	if err := h.receiptService.Delete(c.Context(), accountID, id); err != nil {
		if errors.Is(err, service.ErrReceiptNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		}
		h.logger.Error("Failed to delete receipt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete receipt",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
