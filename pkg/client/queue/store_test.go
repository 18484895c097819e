package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propledger/pkg/client"
)

type fakeAPI struct {
	queue *client.ReceiptQueue
	err   error
	calls int
	block chan struct{}
}

func (f *fakeAPI) UnprocessedReceipts(context.Context) (*client.ReceiptQueue, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.queue, nil
}

func receiptWithID(id string) client.Receipt {
	return client.Receipt{
		ID:          id,
		ContentType: "image/jpeg",
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

func TestLoadReplacesEntries(t *testing.T) {
	api := &fakeAPI{queue: &client.ReceiptQueue{
		Items:      []client.Receipt{receiptWithID("a"), receiptWithID("b")},
		TotalCount: 2,
	}}
	store := NewStore(api)

	assert.False(t, store.HasReceipts())
	assert.False(t, store.Loaded())

	require.NoError(t, store.Load(context.Background()))

	assert.True(t, store.Loaded())
	assert.True(t, store.HasReceipts())
	assert.Equal(t, 2, store.UnprocessedCount())

	// A later load wins wholesale, dropping anything the server no longer has.
	api.queue = &client.ReceiptQueue{Items: []client.Receipt{receiptWithID("b")}, TotalCount: 1}
	require.NoError(t, store.Load(context.Background()))
	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Receipt.ID)
}

func TestLoadFailureKeepsStaleEntries(t *testing.T) {
	api := &fakeAPI{queue: &client.ReceiptQueue{
		Items: []client.Receipt{receiptWithID("a")}, TotalCount: 1,
	}}
	store := NewStore(api)
	require.NoError(t, store.Load(context.Background()))

	api.err = errors.New("connection refused")
	require.Error(t, store.Load(context.Background()))

	assert.Equal(t, 1, store.UnprocessedCount())
	assert.Error(t, store.LastErr())

	api.err = nil
	require.NoError(t, store.Load(context.Background()))
	assert.NoError(t, store.LastErr())
}

func TestAddFromRealtimePrependsAndMarksNew(t *testing.T) {
	store := NewStore(&fakeAPI{}, WithNewMarkerTTL(200*time.Millisecond))
	store.AddOptimistic(receiptWithID("old"))

	store.AddFromRealtime(receiptWithID("fresh"))

	entries := store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "fresh", entries[0].Receipt.ID)
	assert.True(t, entries[0].IsNew)
	assert.False(t, entries[1].IsNew)

	// The highlight holds for the marker's lifetime, then settles on its own.
	time.Sleep(100 * time.Millisecond)
	assert.True(t, store.Entries()[0].IsNew)
	require.Eventually(t, func() bool {
		return !store.Entries()[0].IsNew
	}, time.Second, 5*time.Millisecond)
}

func TestHasReceiptsFalseWhileReloadInFlight(t *testing.T) {
	api := &fakeAPI{queue: &client.ReceiptQueue{
		Items: []client.Receipt{receiptWithID("a")}, TotalCount: 1,
	}}
	store := NewStore(api)
	require.NoError(t, store.Load(context.Background()))
	require.True(t, store.HasReceipts())

	api.block = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- store.Load(context.Background()) }()

	require.Eventually(t, store.Loading, time.Second, time.Millisecond)

	// Entries stay for rendering, but they must not be presented as settled
	// content while the refresh is in flight.
	assert.False(t, store.HasReceipts())
	assert.Equal(t, 1, store.UnprocessedCount())

	close(api.block)
	require.NoError(t, <-done)
	assert.False(t, store.Loading())
	assert.True(t, store.HasReceipts())
}

func TestAddIsIdempotentByID(t *testing.T) {
	store := NewStore(&fakeAPI{})
	store.AddOptimistic(receiptWithID("a"))

	// The realtime echo of this session's own confirm must not duplicate.
	store.AddFromRealtime(receiptWithID("a"))
	store.AddFromRealtime(receiptWithID("a"))

	assert.Equal(t, 1, store.UnprocessedCount())
	assert.False(t, store.Entries()[0].IsNew)
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	store := NewStore(&fakeAPI{})
	store.AddOptimistic(receiptWithID("a"))

	store.Remove("never-existed")
	assert.Equal(t, 1, store.UnprocessedCount())

	store.Remove("a")
	store.Remove("a")
	assert.True(t, store.IsEmpty())
}

func TestHead(t *testing.T) {
	store := NewStore(&fakeAPI{})

	_, ok := store.Head()
	assert.False(t, ok)

	store.AddOptimistic(receiptWithID("first"))
	store.AddFromRealtime(receiptWithID("second"))

	head, ok := store.Head()
	require.True(t, ok)
	assert.Equal(t, "second", head.ID)
}

func TestListenersNotifiedOnMutation(t *testing.T) {
	store := NewStore(&fakeAPI{queue: &client.ReceiptQueue{}})

	var notifications atomic.Int32
	store.Subscribe(func() { notifications.Add(1) })

	// Load notifies twice: once entering the loading state, once settled.
	require.NoError(t, store.Load(context.Background()))
	store.AddFromRealtime(receiptWithID("a"))
	store.Remove("a")

	assert.Equal(t, int32(4), notifications.Load())
}
