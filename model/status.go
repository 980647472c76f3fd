package model

import "time"

type OrderStatus string

const (
	StatusNew       OrderStatus = "new"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the kitchen pipeline. Served and cancelled are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusNew:       {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed, StatusCancelled},
	StatusServed:    {},
	StatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// CanTransitionTo reports whether next is adjacent to s in the pipeline.
// Re-applying the current status is always allowed so its timestamp can be
// refreshed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stamp sets the timestamp that belongs to status s, if any.
func (s OrderStatus) Stamp(o *Order, at time.Time) {
	switch s {
	case StatusPreparing:
		o.PreparingAt = &at
	case StatusReady:
		o.ReadyAt = &at
	case StatusServed:
		o.ServedAt = &at
	}
}
