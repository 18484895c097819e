package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrReceiptAlreadyProcessed is returned by CreateFromReceipt when the
// referenced receipt is gone from the queue (another session won the race).
var ErrReceiptAlreadyProcessed = errors.New("receipt already processed")

var expenseColumns = []string{
	"id", "account_id", "property_id", "amount", "expense_date",
	"description", "receipt_id", "work_order_id", "created_at",
}

type ExpenseRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewExpenseRepository(db *pgxpool.Pool, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	sql, args, err := insertExpenseQuery(expense).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// CreateFromReceipt atomically inserts the expense and stamps the referenced
// receipt's processed_at. The stamp is conditional on the receipt still
// being unprocessed; a concurrent session that already converted it makes
// this call fail with ErrReceiptAlreadyProcessed and nothing is written.
func (r *ExpenseRepository) CreateFromReceipt(ctx context.Context, expense *models.Expense) error {
	if expense.ReceiptID == nil {
		return fmt.Errorf("expense has no receipt reference")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stamp := squirrel.Update("receipts").
		Set("processed_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": *expense.ReceiptID, "account_id": expense.AccountID}).
		Where("processed_at IS NULL").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := stamp.ToSql()
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiptAlreadyProcessed
	}

	sql, args, err = insertExpenseQuery(expense).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// FindMatch returns the oldest expense for the property with the exact same
// date and amount, or ErrNotFound. Exact equality is deliberate: duplicate
// detection is advisory and flags the receipt an operator already keyed in.
func (r *ExpenseRepository) FindMatch(ctx context.Context, accountID, propertyID uuid.UUID, amount float64, dateISO string) (*models.Expense, error) {
	query := squirrel.Select(expenseColumns...).
		From("expenses").
		Where(squirrel.Eq{"account_id": accountID, "property_id": propertyID}).
		Where("expense_date = ?", dateISO).
		Where("amount = ?", amount).
		OrderBy("created_at ASC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var expense models.Expense
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&expense.ID, &expense.AccountID, &expense.PropertyID, &expense.Amount,
		&expense.Date, &expense.Description, &expense.ReceiptID,
		&expense.WorkOrderID, &expense.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &expense, nil
}

func insertExpenseQuery(expense *models.Expense) squirrel.InsertBuilder {
	return squirrel.Insert("expenses").
		Columns(expenseColumns...).
		Values(
			expense.ID, expense.AccountID, expense.PropertyID, expense.Amount,
			expense.Date, expense.Description, expense.ReceiptID,
			expense.WorkOrderID, expense.CreatedAt,
		).
		PlaceholderFormat(squirrel.Dollar)
}
