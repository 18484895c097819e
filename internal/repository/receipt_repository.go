package repository

import (
	"context"
	"errors"

	"propledger/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a tenant-scoped lookup matches no row.
var ErrNotFound = errors.New("record not found")

var receiptColumns = []string{
	"id", "account_id", "content_type", "file_size_bytes", "storage_key",
	"thumbnail_storage_key", "original_file_name", "property_id",
	"property_name", "created_at", "processed_at",
}

type ReceiptRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewReceiptRepository(db *pgxpool.Pool, logger *zap.Logger) *ReceiptRepository {
	return &ReceiptRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	query := squirrel.Insert("receipts").
		Columns(receiptColumns...).
		Values(
			receipt.ID, receipt.AccountID, receipt.ContentType,
			receipt.FileSizeBytes, receipt.StorageKey, receipt.ThumbnailStorageKey,
			receipt.OriginalFileName, receipt.PropertyID, receipt.PropertyName,
			receipt.CreatedAt, receipt.ProcessedAt,
		).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ReceiptRepository) GetByID(ctx context.Context, accountID, id uuid.UUID) (*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"id": id, "account_id": accountID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	receipt, err := scanReceipt(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return receipt, nil
}

// ListUnprocessed returns the account's queue, newest first. The server owns
// the ordering; clients must not re-sort.
func (r *ReceiptRepository) ListUnprocessed(ctx context.Context, accountID uuid.UUID) ([]*models.Receipt, error) {
	query := squirrel.Select(receiptColumns...).
		From("receipts").
		Where(squirrel.Eq{"account_id": accountID}).
		Where("processed_at IS NULL").
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}

	return receipts, rows.Err()
}

func (r *ReceiptRepository) SetThumbnailKey(ctx context.Context, id uuid.UUID, key string) error {
	query := squirrel.Update("receipts").
		Set("thumbnail_storage_key", key).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// Delete hard-deletes the receipt row. Receipts are never soft-deleted.
func (r *ReceiptRepository) Delete(ctx context.Context, accountID, id uuid.UUID) error {
	query := squirrel.Delete("receipts").
		Where(squirrel.Eq{"id": id, "account_id": accountID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReceipt(row pgx.Row) (*models.Receipt, error) {
	var receipt models.Receipt
	err := row.Scan(
		&receipt.ID, &receipt.AccountID, &receipt.ContentType,
		&receipt.FileSizeBytes, &receipt.StorageKey, &receipt.ThumbnailStorageKey,
		&receipt.OriginalFileName, &receipt.PropertyID, &receipt.PropertyName,
		&receipt.CreatedAt, &receipt.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
