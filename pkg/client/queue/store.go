// Package queue keeps a local mirror of the account's unprocessed receipt
// queue. It is the single source of truth for rendering: a full load replaces
// it, realtime events mutate it incrementally, and every mutation notifies
// subscribed listeners.
package queue

import (
	"context"
	"sync"
	"time"

	"propledger/pkg/client"
)

// DefaultNewMarkerTTL is how long a freshly pushed receipt keeps its "new"
// highlight before it settles into the queue.
const DefaultNewMarkerTTL = 2300 * time.Millisecond

// Entry is a queue row plus its transient presentation state.
type Entry struct {
	Receipt client.Receipt
	IsNew   bool
}

// Listener is invoked after every state change, outside the store lock.
type Listener func()

type API interface {
	UnprocessedReceipts(ctx context.Context) (*client.ReceiptQueue, error)
}

// Store holds the local queue state. All methods are safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	api       API
	entries   []client.Receipt
	newIDs    map[string]*time.Timer
	loaded    bool
	loading   bool
	lastErr   error
	markerTTL time.Duration
	listeners []Listener
}

type Option func(*Store)

// WithNewMarkerTTL overrides the highlight duration.
func WithNewMarkerTTL(ttl time.Duration) Option {
	return func(s *Store) { s.markerTTL = ttl }
}

func NewStore(api API, opts ...Option) *Store {
	s := &Store{
		api:       api,
		newIDs:    make(map[string]*time.Timer),
		markerTTL: DefaultNewMarkerTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener for state changes. Listeners are called
// synchronously after each mutation.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Load replaces the local queue with the server's current state. On failure
// the previous entries are kept so the caller can keep rendering stale data
// alongside the error.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	queue, err := s.api.UnprocessedReceipts(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.entries = queue.Items
	s.loaded = true
	s.lastErr = nil
	s.mu.Unlock()

	s.notify()
	return nil
}

// AddFromRealtime inserts a receipt pushed over the sync channel at the head
// of the queue and marks it new. Adding an already present id is a no-op, so
// redelivered events and optimistic inserts coexist safely.
func (s *Store) AddFromRealtime(receipt client.Receipt) {
	s.add(receipt, true)
}

// AddOptimistic inserts a receipt this session just confirmed, without the
// new highlight. The matching realtime event will be deduplicated by id.
func (s *Store) AddOptimistic(receipt client.Receipt) {
	s.add(receipt, false)
}

func (s *Store) add(receipt client.Receipt, markNew bool) {
	s.mu.Lock()
	if s.indexOf(receipt.ID) >= 0 {
		s.mu.Unlock()
		return
	}
	s.entries = append([]client.Receipt{receipt}, s.entries...)
	if markNew {
		s.markNewLocked(receipt.ID)
	}
	s.mu.Unlock()
	s.notify()
}

// Remove drops a receipt by id. Removing an absent id is a no-op, so remote
// removals and local completions never conflict.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	if timer, ok := s.newIDs[id]; ok {
		timer.Stop()
		delete(s.newIDs, id)
	}
	s.mu.Unlock()
	s.notify()
}

// Entries returns a snapshot of the queue in display order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	for i, r := range s.entries {
		_, isNew := s.newIDs[r.ID]
		out[i] = Entry{Receipt: r, IsNew: isNew}
	}
	return out
}

// Head returns the first queued receipt, or false when the queue is empty.
func (s *Store) Head() (client.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return client.Receipt{}, false
	}
	return s.entries[0], true
}

func (s *Store) UnprocessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) IsEmpty() bool {
	return s.UnprocessedCount() == 0
}

// HasReceipts reports whether the queue has settled content to show. It is
// false while any load is in flight, even over a non-empty list, so callers
// never flash stale content mid-refresh.
func (s *Store) HasReceipts() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.loading && s.loaded && len(s.entries) > 0
}

// Loading reports whether a load is currently in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Loaded reports whether at least one full load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// LastErr returns the most recent load failure, or nil after a success.
func (s *Store) LastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// markNewLocked highlights an id and schedules the expiry. The timer
// re-checks membership before clearing: if the receipt was removed and
// re-added in between, the newer marker owns the highlight.
func (s *Store) markNewLocked(id string) {
	if timer, ok := s.newIDs[id]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.markerTTL, func() {
		s.mu.Lock()
		current, ok := s.newIDs[id]
		if !ok || current != timer {
			s.mu.Unlock()
			return
		}
		delete(s.newIDs, id)
		s.mu.Unlock()
		s.notify()
	})
	s.newIDs[id] = timer
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.entries {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
