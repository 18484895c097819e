package dto

type CreateExpenseRequest struct {
	PropertyID  string  `json:"property_id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Description string  `json:"description"`
	ReceiptID   string  `json:"receipt_id,omitempty"`
	WorkOrderID string  `json:"work_order_id,omitempty"`
}

type ExpenseResponse struct {
	ID          string  `json:"id"`
	PropertyID  string  `json:"property_id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	ReceiptID   string  `json:"receipt_id,omitempty"`
	WorkOrderID string  `json:"work_order_id,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// DuplicateCheckResponse is advisory: the client decides whether to prompt
// before saving a likely duplicate.
type DuplicateCheckResponse struct {
	IsDuplicate     bool             `json:"is_duplicate"`
	ExistingExpense *ExpenseResponse `json:"existing_expense,omitempty"`
}
