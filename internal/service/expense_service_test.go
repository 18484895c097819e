package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propledger/internal/dto"
	"propledger/internal/models"
	"propledger/internal/realtime"
	"propledger/internal/repository"
)

type fakeExpenseStore struct {
	created           []*models.Expense
	createFromReceipt []*models.Expense
	match             *models.Expense
	matchErr          error
	fromReceiptErr    error
}

func (f *fakeExpenseStore) Create(_ context.Context, expense *models.Expense) error {
	f.created = append(f.created, expense)
	return nil
}

func (f *fakeExpenseStore) CreateFromReceipt(_ context.Context, expense *models.Expense) error {
	if f.fromReceiptErr != nil {
		return f.fromReceiptErr
	}
	f.createFromReceipt = append(f.createFromReceipt, expense)
	return nil
}

func (f *fakeExpenseStore) FindMatch(_ context.Context, _, _ uuid.UUID, _ float64, _ string) (*models.Expense, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return f.match, nil
}

func TestCheckDuplicateNoMatch(t *testing.T) {
	expenses := &fakeExpenseStore{matchErr: repository.ErrNotFound}
	svc := NewExpenseService(expenses, &fakeBroadcaster{}, zap.NewNop())

	check, err := svc.CheckDuplicate(context.Background(), uuid.New(), uuid.New(), 42.50, "2026-08-14")
	require.NoError(t, err)
	assert.False(t, check.IsDuplicate)
	assert.Nil(t, check.ExistingExpense)
}

func TestCheckDuplicateMatch(t *testing.T) {
	existing := &models.Expense{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		PropertyID:  uuid.New(),
		Amount:      42.50,
		Date:        time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		Description: "Faucet replacement",
		CreatedAt:   time.Now().UTC(),
	}
	expenses := &fakeExpenseStore{match: existing}
	svc := NewExpenseService(expenses, &fakeBroadcaster{}, zap.NewNop())

	check, err := svc.CheckDuplicate(context.Background(), existing.AccountID, existing.PropertyID, 42.50, "2026-08-14")
	require.NoError(t, err)
	assert.True(t, check.IsDuplicate)
	require.NotNil(t, check.ExistingExpense)
	assert.Equal(t, existing.ID.String(), check.ExistingExpense.ID)
	assert.Equal(t, "2026-08-14", check.ExistingExpense.Date)
}

func TestCheckDuplicateRejectsBadDate(t *testing.T) {
	svc := NewExpenseService(&fakeExpenseStore{}, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.CheckDuplicate(context.Background(), uuid.New(), uuid.New(), 10, "14/08/2026")
	assert.ErrorIs(t, err, ErrInvalidExpense)
}

func TestCreateFromReceiptStampsAndBroadcasts(t *testing.T) {
	expenses := &fakeExpenseStore{}
	hub := &fakeBroadcaster{}
	svc := NewExpenseService(expenses, hub, zap.NewNop())

	accountID := uuid.New()
	receiptID := uuid.New()
	resp, err := svc.Create(context.Background(), accountID, &dto.CreateExpenseRequest{
		PropertyID:  uuid.NewString(),
		Amount:      129.99,
		Date:        "2026-08-14",
		Description: "Water heater parts",
		ReceiptID:   receiptID.String(),
	})
	require.NoError(t, err)

	require.Len(t, expenses.createFromReceipt, 1)
	assert.Empty(t, expenses.created)
	assert.Equal(t, receiptID.String(), resp.ReceiptID)

	require.Len(t, hub.events, 1)
	assert.Equal(t, realtime.EventReceiptRemoved, hub.events[0].Type)
	assert.Equal(t, receiptID.String(), hub.events[0].ID)
}

func TestCreateFromReceiptLosesRace(t *testing.T) {
	expenses := &fakeExpenseStore{fromReceiptErr: repository.ErrReceiptAlreadyProcessed}
	hub := &fakeBroadcaster{}
	svc := NewExpenseService(expenses, hub, zap.NewNop())

	_, err := svc.Create(context.Background(), uuid.New(), &dto.CreateExpenseRequest{
		PropertyID: uuid.NewString(),
		Amount:     10,
		Date:       "2026-08-14",
		ReceiptID:  uuid.NewString(),
	})

	assert.ErrorIs(t, err, ErrReceiptProcessed)
	assert.Empty(t, hub.events)
}

func TestCreateWithoutReceipt(t *testing.T) {
	expenses := &fakeExpenseStore{}
	hub := &fakeBroadcaster{}
	svc := NewExpenseService(expenses, hub, zap.NewNop())

	resp, err := svc.Create(context.Background(), uuid.New(), &dto.CreateExpenseRequest{
		PropertyID:  uuid.NewString(),
		Amount:      55,
		Date:        "2026-08-01",
		Description: "Lawn care",
	})
	require.NoError(t, err)

	require.Len(t, expenses.created, 1)
	assert.Empty(t, expenses.createFromReceipt)
	assert.Empty(t, resp.ReceiptID)
	assert.Empty(t, hub.events)
}

func TestCreateValidation(t *testing.T) {
	svc := NewExpenseService(&fakeExpenseStore{}, &fakeBroadcaster{}, zap.NewNop())
	accountID := uuid.New()

	cases := []struct {
		name string
		req  dto.CreateExpenseRequest
	}{
		{"bad property id", dto.CreateExpenseRequest{PropertyID: "nope", Amount: 10, Date: "2026-08-14"}},
		{"bad date", dto.CreateExpenseRequest{PropertyID: uuid.NewString(), Amount: 10, Date: "August 14"}},
		{"zero amount", dto.CreateExpenseRequest{PropertyID: uuid.NewString(), Amount: 0, Date: "2026-08-14"}},
		{"negative amount", dto.CreateExpenseRequest{PropertyID: uuid.NewString(), Amount: -5, Date: "2026-08-14"}},
		{"bad receipt id", dto.CreateExpenseRequest{PropertyID: uuid.NewString(), Amount: 10, Date: "2026-08-14", ReceiptID: "nope"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), accountID, &tc.req)
			assert.ErrorIs(t, err, ErrInvalidExpense)
		})
	}
}
