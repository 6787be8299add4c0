package domain

import "time"

// EventKind tags a semantic state change detected on an order.
type EventKind string

const (
	EventOrderCreated      EventKind = "order.created"
	EventPaidStatusChanged EventKind = "order.paid_status_changed"
	EventJugStatusChanged  EventKind = "order.jug_status_changed"
	EventOrderDeleted      EventKind = "order.deleted"
)

// Event is transient: produced and consumed within one order mutation,
// never persisted. Order is the snapshot the event applies to; for
// EventOrderDeleted it is the last state before deletion.
type Event struct {
	Kind       EventKind
	Order      Order
	PaidFrom   bool
	PaidTo     bool
	JugFrom    JugStatus
	JugTo      JugStatus
	OccurredAt time.Time
}

// Notification is the {title, message} pair pushed to live connections.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NotificationMessage is the wire form published to the fanout exchange
// for offline channels (email/SMS relay, notification history).
type NotificationMessage struct {
	Kind       EventKind `json:"kind"`
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeliveryReport counts the outcome of one dispatch fan-out.
type DeliveryReport struct {
	Targeted  int `json:"targeted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
