package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propledger/internal/dto"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	go hub.Run()
	return hub
}

func waitForCount(t *testing.T, hub *Hub, accountID uuid.UUID, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ClientCount(accountID) == want
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcastReachesAllAccountSessions(t *testing.T) {
	hub := startHub(t)
	accountID := uuid.New()

	first := NewClient(accountID)
	second := NewClient(accountID)
	hub.Register(first)
	hub.Register(second)
	waitForCount(t, hub, accountID, 2)

	event := ReceiptAdded(&dto.ReceiptResponse{ID: uuid.NewString()})
	hub.Broadcast(accountID, event)

	for _, client := range []*Client{first, second} {
		select {
		case got := <-client.Send:
			assert.Equal(t, EventReceiptAdded, got.Type)
			assert.Equal(t, event.Receipt.ID, got.Receipt.ID)
		case <-time.After(time.Second):
			t.Fatal("client never received the event")
		}
	}
}

func TestBroadcastIsScopedToAccount(t *testing.T) {
	hub := startHub(t)
	accountID := uuid.New()
	otherAccountID := uuid.New()

	mine := NewClient(accountID)
	theirs := NewClient(otherAccountID)
	hub.Register(mine)
	hub.Register(theirs)
	waitForCount(t, hub, accountID, 1)
	waitForCount(t, hub, otherAccountID, 1)

	hub.Broadcast(accountID, ReceiptRemoved(uuid.NewString()))

	select {
	case <-mine.Send:
	case <-time.After(time.Second):
		t.Fatal("own session never received the event")
	}

	select {
	case got := <-theirs.Send:
		t.Fatalf("event leaked across accounts: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := startHub(t)
	accountID := uuid.New()

	client := NewClient(accountID)
	hub.Register(client)
	waitForCount(t, hub, accountID, 1)

	hub.Unregister(client)
	waitForCount(t, hub, accountID, 0)

	select {
	case _, open := <-client.Send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := startHub(t)
	accountID := uuid.New()

	slow := NewClient(accountID)
	hub.Register(slow)
	waitForCount(t, hub, accountID, 1)

	// Fill the buffer without draining, then push one more event.
	for i := 0; i < cap(slow.Send); i++ {
		hub.Broadcast(accountID, ReceiptRemoved(uuid.NewString()))
	}
	hub.Broadcast(accountID, ReceiptRemoved(uuid.NewString()))

	waitForCount(t, hub, accountID, 0)
}
