// Package assembly drives the receipt-to-expense conversion flow: load a
// receipt, collect the expense details, save, and advance to the next queued
// receipt until the queue is drained.
package assembly

import (
	"context"
	"errors"
	"fmt"

	"propledger/pkg/client"
)

// State is the conversion screen's mode for the current receipt.
type State int

const (
	// StateLoading means the receipt is being fetched; no form is shown.
	StateLoading State = iota
	// StateReady means the receipt is displayed with an editable form.
	StateReady
	// StateAlreadyProcessed means another session converted this receipt
	// first; only advancing is possible.
	StateAlreadyProcessed
	// StateError means the receipt could not be loaded.
	StateError
)

// ExpenseForm holds the fields collected for one conversion. Date and
// property are pre-seeded from the receipt.
type ExpenseForm struct {
	PropertyID  string
	Amount      float64
	Date        string
	Description string
	WorkOrderID string
}

type API interface {
	Receipt(ctx context.Context, id string) (*client.Receipt, error)
	CreateExpense(ctx context.Context, in client.CreateExpenseInput) (*client.Expense, error)
	CheckDuplicateExpense(ctx context.Context, propertyID string, amount float64, date string) (*client.DuplicateCheck, error)
}

type Queue interface {
	Remove(id string)
	Head() (client.Receipt, bool)
}

// ConfirmDuplicateFunc decides whether to proceed when a likely duplicate is
// found. Returning false aborts the save with no mutation.
type ConfirmDuplicateFunc func(existing *client.Expense) bool

// Controller runs the assembly line over the shared queue. It is not safe
// for concurrent use; one controller serves one conversion session.
type Controller struct {
	api   API
	queue Queue

	state      State
	receipt    *client.Receipt
	form       ExpenseForm
	errMessage string
	caughtUp   bool
}

func NewController(api API, queue Queue) *Controller {
	return &Controller{api: api, queue: queue}
}

func (c *Controller) State() State             { return c.state }
func (c *Controller) Receipt() *client.Receipt { return c.receipt }
func (c *Controller) Form() *ExpenseForm       { return &c.form }
func (c *Controller) ErrMessage() string       { return c.errMessage }

// AllCaughtUp reports whether the session drained the queue.
func (c *Controller) AllCaughtUp() bool { return c.caughtUp }

// Load fetches a receipt and settles into the state the screen should show.
// A receipt processed by another session lands in StateAlreadyProcessed
// rather than an error; the operator just moves on.
func (c *Controller) Load(ctx context.Context, receiptID string) {
	c.state = StateLoading
	c.receipt = nil
	c.errMessage = ""
	c.caughtUp = false

	receipt, err := c.api.Receipt(ctx, receiptID)
	if err != nil {
		c.state = StateError
		if errors.Is(err, client.ErrNotFound) {
			c.errMessage = "Receipt not found"
		} else {
			c.errMessage = "Failed to load receipt"
		}
		return
	}

	c.receipt = receipt
	if receipt.Processed() {
		c.state = StateAlreadyProcessed
		return
	}

	c.form = ExpenseForm{
		PropertyID: receipt.PropertyID,
		Date:       receipt.CaptureDate(),
	}
	c.state = StateReady
}

// Save converts the current receipt into an expense and advances to the next
// queued receipt. When a likely duplicate exists, confirmDup decides whether
// to proceed; declining leaves everything untouched.
func (c *Controller) Save(ctx context.Context, confirmDup ConfirmDuplicateFunc) error {
	if c.state != StateReady || c.receipt == nil {
		return fmt.Errorf("no receipt ready to save")
	}

	check, err := c.api.CheckDuplicateExpense(ctx, c.form.PropertyID, c.form.Amount, c.form.Date)
	if err == nil && check.IsDuplicate {
		if confirmDup != nil && !confirmDup(check.ExistingExpense) {
			return nil
		}
	}

	receiptID := c.receipt.ID
	_, err = c.api.CreateExpense(ctx, client.CreateExpenseInput{
		PropertyID:  c.form.PropertyID,
		Amount:      c.form.Amount,
		Date:        c.form.Date,
		Description: c.form.Description,
		ReceiptID:   receiptID,
		WorkOrderID: c.form.WorkOrderID,
	})
	if err != nil {
		if errors.Is(err, client.ErrReceiptProcessed) {
			// Lost the race; the receipt leaves the queue either way.
			c.queue.Remove(receiptID)
			c.advance(ctx)
			return nil
		}
		return err
	}

	c.queue.Remove(receiptID)
	c.advance(ctx)
	return nil
}

// Advance moves on to the head of the queue after an AlreadyProcessed
// notice. The stale entry is dropped locally; the realtime removal may have
// been missed.
func (c *Controller) Advance(ctx context.Context) {
	if c.receipt != nil {
		c.queue.Remove(c.receipt.ID)
	}
	c.advance(ctx)
}

// Cancel leaves the flow with no mutation. The current receipt remains
// queued for any session.
func (c *Controller) Cancel() {
	c.receipt = nil
	c.form = ExpenseForm{}
	c.state = StateLoading
	c.errMessage = ""
}

func (c *Controller) advance(ctx context.Context) {
	head, ok := c.queue.Head()
	if !ok {
		c.finish()
		return
	}
	c.Load(ctx, head.ID)
}

func (c *Controller) finish() {
	c.receipt = nil
	c.form = ExpenseForm{}
	c.state = StateLoading
	c.errMessage = ""
	c.caughtUp = true
}
