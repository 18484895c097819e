package handlers

import (
	"errors"
	"strconv"

	"propledger/internal/dto"
	"propledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ExpenseHandler struct {
	expenseService *service.ExpenseService
	logger         *zap.Logger
}

func NewExpenseHandler(expenseService *service.ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

// Create records an expense. A receipt_id in the body makes this the
// save-and-advance step of the assembly line.
func (h *ExpenseHandler) Create(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req dto.CreateExpenseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	expense, err := h.expenseService.Create(c.Context(), accountID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidExpense):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, service.ErrReceiptProcessed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Receipt already processed",
			})
		}
		h.logger.Error("Failed to create expense", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create expense",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(expense)
}

// CheckDuplicate answers the advisory duplicate query for the assembly-line
// form.
func (h *ExpenseHandler) CheckDuplicate(c *fiber.Ctx) error {
	accountID, err := getAccountID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	propertyID, err := uuid.Parse(c.Query("property_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid property id",
		})
	}
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil || amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid amount",
		})
	}
	date := c.Query("date")

	result, err := h.expenseService.CheckDuplicate(c.Context(), accountID, propertyID, amount, date)
	if err != nil {
		if errors.Is(err, service.ErrInvalidExpense) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.logger.Error("Failed to check for duplicates", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check for duplicates",
		})
	}

	return c.JSON(result)
}
