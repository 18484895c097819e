package handlers

import (
	"propledger/internal/metrics"
	"propledger/internal/realtime"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WSHandler upgrades authenticated requests to the account's realtime
// channel. The channel is push-only from the client's perspective; queue
// state is resynced over HTTP after every reconnect, so missed events are
// never replayed here.
type WSHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *realtime.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: logger,
	}
}

// RequireUpgrade rejects plain HTTP requests on the websocket route.
func (h *WSHandler) RequireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Serve runs one connected session until the peer goes away.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		accountIDStr, _ := conn.Locals("accountID").(string)
		accountID, err := uuid.Parse(accountIDStr)
		if err != nil {
			_ = conn.Close()
			return
		}

		client := realtime.NewClient(accountID)
		h.hub.Register(client)
		metrics.RealtimeClients.Inc()
		defer metrics.RealtimeClients.Dec()

		done := make(chan struct{})
		go func() {
			defer close(done)
			// Closing the connection here unblocks the read loop when the
			// hub drops this session (Send closed), so the peer sees the
			// disconnect and reconnects for a resync.
			defer conn.Close()
			for event := range client.Send {
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Debug("Realtime write failed",
						zap.String("client_id", client.ID),
						zap.Error(err),
					)
					return
				}
			}
		}()

		// The channel is server-to-client only; the read loop exists to
		// notice disconnects and consume control frames.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		h.hub.Unregister(client)
		<-done
	})
}
