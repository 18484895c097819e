package models

import (
	"time"

	"github.com/google/uuid"
)

// Receipt is a captured receipt image awaiting conversion into an expense.
// A nil ProcessedAt means the receipt is still in the unprocessed queue.
type Receipt struct {
	ID                  uuid.UUID  `db:"id"`
	AccountID           uuid.UUID  `db:"account_id"`
	ContentType         string     `db:"content_type"`
	FileSizeBytes       int64      `db:"file_size_bytes"`
	StorageKey          string     `db:"storage_key"`
	ThumbnailStorageKey *string    `db:"thumbnail_storage_key"`
	OriginalFileName    string     `db:"original_file_name"`
	PropertyID          *uuid.UUID `db:"property_id"`
	PropertyName        *string    `db:"property_name"`
	CreatedAt           time.Time  `db:"created_at"`
	ProcessedAt         *time.Time `db:"processed_at"`
}

// Processed reports whether the receipt has been converted into an expense.
func (r *Receipt) Processed() bool {
	return r.ProcessedAt != nil
}
