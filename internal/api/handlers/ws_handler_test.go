package handlers

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propledger/internal/dto"
	"propledger/internal/realtime"
)

// startWSServer runs a real listener; websocket upgrades need an actual
// connection, not fiber's in-memory test transport.
func startWSServer(t *testing.T, hub *realtime.Hub, accountID uuid.UUID) string {
	t.Helper()

	handler := NewWSHandler(hub, zap.NewNop())
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("accountID", accountID.String())
		return c.Next()
	})
	app.Get("/ws", handler.RequireUpgrade, handler.Serve())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws"
}

func TestDroppedSlowSessionGetsDisconnected(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	go hub.Run()
	accountID := uuid.New()
	url := startWSServer(t, hub, accountID)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount(accountID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Flood without reading until the hub gives up on this session.
	event := realtime.ReceiptAdded(&dto.ReceiptResponse{
		ID:               uuid.NewString(),
		OriginalFileName: strings.Repeat("x", 1<<16),
	})
	require.Eventually(t, func() bool {
		hub.Broadcast(accountID, event)
		return hub.ClientCount(accountID) == 0
	}, 5*time.Second, time.Millisecond)

	// The server must close the socket; otherwise the peer never notices the
	// drop and never reconnects for a resync.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatal("server never closed the dropped session's connection")
		}
		return
	}
}

func TestNormalDisconnectUnregisters(t *testing.T) {
	hub := realtime.NewHub(zap.NewNop())
	go hub.Run()
	accountID := uuid.New()
	url := startWSServer(t, hub, accountID)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.ClientCount(accountID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return hub.ClientCount(accountID) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
