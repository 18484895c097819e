package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the tenant boundary. Receipts, expenses, and realtime events
// never cross accounts.
type Account struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// User is an operator within an account. Authentication itself happens
// upstream; tokens carry the user and account ids.
type User struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	Email     string    `db:"email"`
	FullName  string    `db:"full_name"`
	CreatedAt time.Time `db:"created_at"`
}
