package events

import (
	"context"
	"errors"
	"time"
)

const (
	OrderCreated       = "order.created"
	OrderUpdated       = "order.updated"
	WaiterCalled       = "waiter.called"
	WaiterAcknowledged = "waiter.acknowledged"
	FeedbackCreated    = "feedback.created"
	TableReset         = "table.reset"
)

var ErrClosed = errors.New("broker closed")

// Event is one live update. TableID scopes it to a customer stream; Payload is
// the affected record.
type Event struct {
	Type    string      `json:"type"`
	TableID string      `json:"tableId,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	At      time.Time   `json:"at"`
}

func New(eventType, tableID string, payload interface{}) Event {
	return Event{Type: eventType, TableID: tableID, Payload: payload, At: time.Now()}
}

// Broker fans events out to every live subscriber. Delivery is best effort;
// the REST endpoints stay the source of truth.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe returns a channel that is closed when ctx ends or cancel is
	// called.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
	Close() error
}
