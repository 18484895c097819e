package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is one connected session. Send is buffered; a session that cannot
// keep up is unregistered rather than allowed to block the hub.
type Client struct {
	ID        string
	AccountID uuid.UUID
	Send      chan Event
}

func NewClient(accountID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Send:      make(chan Event, 32),
	}
}

// Hub fans queue mutations out to every connected session of the same
// account. Accounts are the isolation boundary: an event never crosses to
// another account's clients.
type Hub struct {
	clients    map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run processes register/unregister requests. Call once, in its own
// goroutine, for the lifetime of the server.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.AccountID] == nil {
				h.clients[client.AccountID] = make(map[string]*Client)
			}
			h.clients[client.AccountID][client.ID] = client
			h.mu.Unlock()
			h.logger.Debug("Realtime client registered",
				zap.String("client_id", client.ID),
				zap.String("account_id", client.AccountID.String()),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if accountClients, ok := h.clients[client.AccountID]; ok {
				if _, ok := accountClients[client.ID]; ok {
					close(client.Send)
					delete(accountClients, client.ID)
					if len(accountClients) == 0 {
						delete(h.clients, client.AccountID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("Realtime client unregistered",
				zap.String("client_id", client.ID),
			)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast delivers the event to every session of the account. Slow
// clients are dropped; they recover by reconnecting and resyncing.
func (h *Hub) Broadcast(accountID uuid.UUID, event Event) {
	h.mu.RLock()
	var slow []*Client
	for _, client := range h.clients[accountID] {
		select {
		case client.Send <- event:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Dropping slow realtime client",
			zap.String("client_id", client.ID),
		)
		h.Unregister(client)
	}
}

// ClientCount returns the number of connected sessions for an account.
func (h *Hub) ClientCount(accountID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[accountID])
}
