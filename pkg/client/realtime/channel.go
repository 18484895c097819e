// Package realtime maintains the push channel that keeps a local queue in
// sync with the server. Delivery is at-least-once with no replay: every
// (re)connect triggers a full queue reload, then incremental events take
// over.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"propledger/pkg/client"
)

const (
	eventReceiptAdded   = "receipt_added"
	eventReceiptRemoved = "receipt_removed"

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

type event struct {
	Type    string          `json:"type"`
	Receipt *client.Receipt `json:"receipt,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// Queue is the slice of the local store the channel drives.
type Queue interface {
	Load(ctx context.Context) error
	AddFromRealtime(receipt client.Receipt)
	Remove(id string)
}

// Channel is a self-healing websocket subscription. Run blocks until the
// context is cancelled, reconnecting with exponential backoff whenever the
// connection drops. Disconnects are silent from the queue's point of view;
// the resync on reconnect repairs anything missed.
type Channel struct {
	url            string
	store          Queue
	dialer         *websocket.Dialer
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewChannel(url string, store Queue) *Channel {
	return &Channel{
		url:            url,
		store:          store,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// Run connects, resyncs, and consumes events until ctx is cancelled. The
// backoff resets after every stint that actually connected, so a healthy
// session that drops does not pay for failures from long ago.
func (c *Channel) Run(ctx context.Context) {
	backoff := c.initialBackoff
	for {
		connected, err := c.connectAndConsume(ctx)
		if err == nil {
			return
		}
		if connected {
			backoff = c.initialBackoff
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// connectAndConsume returns a nil error only when ctx is done; any other
// exit is a failure the caller should retry. The bool reports whether a
// connection was established before the failure.
func (c *Channel) connectAndConsume(ctx context.Context) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Events sent between the last disconnect and now are gone; a full
	// reload makes the local state authoritative again.
	if err := c.store.Load(ctx); err != nil {
		return true, err
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return true, nil
			default:
				return true, err
			}
		}
		c.dispatch(data)
	}
}

func (c *Channel) dispatch(data []byte) {
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}
	switch ev.Type {
	case eventReceiptAdded:
		if ev.Receipt != nil {
			c.store.AddFromRealtime(*ev.Receipt)
		}
	case eventReceiptRemoved:
		if ev.ID != "" {
			c.store.Remove(ev.ID)
		}
	}
}
