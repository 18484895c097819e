package models

import (
	"time"

	"github.com/google/uuid"
)

// Expense is a property expense record. ReceiptID is set when the expense
// was created from a captured receipt via the assembly line.
type Expense struct {
	ID          uuid.UUID  `db:"id"`
	AccountID   uuid.UUID  `db:"account_id"`
	PropertyID  uuid.UUID  `db:"property_id"`
	Amount      float64    `db:"amount"`
	Date        time.Time  `db:"expense_date"`
	Description string     `db:"description"`
	ReceiptID   *uuid.UUID `db:"receipt_id"`
	WorkOrderID *uuid.UUID `db:"work_order_id"`
	CreatedAt   time.Time  `db:"created_at"`
}
