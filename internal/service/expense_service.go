package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propledger/internal/dto"
	"propledger/internal/metrics"
	"propledger/internal/models"
	"propledger/internal/realtime"
	"propledger/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrReceiptProcessed = errors.New("receipt already processed")
	ErrInvalidExpense   = errors.New("invalid expense")
)

const dateLayout = "2006-01-02"

// ExpenseService creates expense records and answers the advisory duplicate
// check. Creating an expense from a receipt is the terminal step of the
// assembly line: it stamps the receipt out of the queue atomically.
type ExpenseService struct {
	expenses ExpenseStore
	hub      Broadcaster
	logger   *zap.Logger
}

func NewExpenseService(expenses ExpenseStore, hub Broadcaster, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{
		expenses: expenses,
		hub:      hub,
		logger:   logger,
	}
}

// CheckDuplicate compares the candidate against existing expenses for the
// property on the exact date with the exact amount. Advisory only: it never
// blocks a save, the caller decides whether to prompt.
func (s *ExpenseService) CheckDuplicate(ctx context.Context, accountID, propertyID uuid.UUID, amount float64, date string) (*dto.DuplicateCheckResponse, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidExpense, date)
	}

	existing, err := s.expenses.FindMatch(ctx, accountID, propertyID, amount, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &dto.DuplicateCheckResponse{IsDuplicate: false}, nil
		}
		return nil, fmt.Errorf("failed to check for duplicates: %w", err)
	}

	return &dto.DuplicateCheckResponse{
		IsDuplicate:     true,
		ExistingExpense: buildExpenseResponse(existing),
	}, nil
}

// Create inserts an expense. When the request references a receipt the
// insert and the receipt's processed_at stamp happen in one transaction;
// losing the cross-session race surfaces as ErrReceiptProcessed.
func (s *ExpenseService) Create(ctx context.Context, accountID uuid.UUID, req *dto.CreateExpenseRequest) (*dto.ExpenseResponse, error) {
	expense, err := s.parseRequest(accountID, req)
	if err != nil {
		return nil, err
	}

	if expense.ReceiptID != nil {
		if err := s.expenses.CreateFromReceipt(ctx, expense); err != nil {
			if errors.Is(err, repository.ErrReceiptAlreadyProcessed) {
				return nil, ErrReceiptProcessed
			}
			return nil, fmt.Errorf("failed to create expense from receipt: %w", err)
		}

		metrics.ReceiptsProcessed.Inc()
		s.logger.Info("Receipt converted to expense",
			zap.String("expense_id", expense.ID.String()),
			zap.String("receipt_id", expense.ReceiptID.String()),
			zap.String("account_id", accountID.String()),
		)
		s.hub.Broadcast(accountID, realtime.ReceiptRemoved(expense.ReceiptID.String()))
	} else {
		if err := s.expenses.Create(ctx, expense); err != nil {
			return nil, fmt.Errorf("failed to create expense: %w", err)
		}
	}

	return buildExpenseResponse(expense), nil
}

func (s *ExpenseService) parseRequest(accountID uuid.UUID, req *dto.CreateExpenseRequest) (*models.Expense, error) {
	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad property id", ErrInvalidExpense)
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidExpense, req.Date)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidExpense)
	}

	expense := &models.Expense{
		ID:          uuid.New(),
		AccountID:   accountID,
		PropertyID:  propertyID,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if req.ReceiptID != "" {
		receiptID, err := uuid.Parse(req.ReceiptID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad receipt id", ErrInvalidExpense)
		}
		expense.ReceiptID = &receiptID
	}
	if req.WorkOrderID != "" {
		workOrderID, err := uuid.Parse(req.WorkOrderID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad work order id", ErrInvalidExpense)
		}
		expense.WorkOrderID = &workOrderID
	}

	return expense, nil
}

func buildExpenseResponse(expense *models.Expense) *dto.ExpenseResponse {
	resp := &dto.ExpenseResponse{
		ID:          expense.ID.String(),
		PropertyID:  expense.PropertyID.String(),
		Amount:      expense.Amount,
		Date:        expense.Date.Format(dateLayout),
		Description: expense.Description,
		CreatedAt:   expense.CreatedAt.Format(time.RFC3339),
	}
	if expense.ReceiptID != nil {
		resp.ReceiptID = expense.ReceiptID.String()
	}
	if expense.WorkOrderID != nil {
		resp.WorkOrderID = expense.WorkOrderID.String()
	}
	return resp
}
