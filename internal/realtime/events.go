package realtime

import "propledger/internal/dto"

const (
	EventReceiptAdded   = "receipt_added"
	EventReceiptRemoved = "receipt_removed"
)

// Event is the wire form of a queue mutation pushed to every connected
// session of an account. Delivery is at-least-once; consumers dedupe by
// receipt id.
type Event struct {
	Type    string               `json:"type"`
	Receipt *dto.ReceiptResponse `json:"receipt,omitempty"`
	ID      string               `json:"id,omitempty"`
}

func ReceiptAdded(receipt *dto.ReceiptResponse) Event {
	return Event{Type: EventReceiptAdded, Receipt: receipt}
}

func ReceiptRemoved(id string) Event {
	return Event{Type: EventReceiptRemoved, ID: id}
}
