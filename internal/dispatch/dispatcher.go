// Package dispatch fans detected events out to the live connections of
// their target groups. Delivery is best-effort and at-most-once: a dead
// or stalled handle is counted in the report and never fails the order
// mutation that triggered the event.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
	"water-delivery-system/internal/subscription"
)

// Publisher mirrors every notification onto the broker for offline
// channels (relay consumer, notification history).
type Publisher interface {
	PublishNotification(ctx context.Context, msg domain.NotificationMessage) error
}

type Dispatcher struct {
	reg           *subscription.Registry
	relay         Publisher // nil when no broker is configured
	lg            *logger.Logger
	handleTimeout time.Duration
	maxInFlight   int
}

func New(reg *subscription.Registry, relay Publisher, lg *logger.Logger, handleTimeout time.Duration, maxInFlight int) *Dispatcher {
	if handleTimeout <= 0 {
		handleTimeout = 3 * time.Second
	}
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	return &Dispatcher{reg: reg, relay: relay, lg: lg, handleTimeout: handleTimeout, maxInFlight: maxInFlight}
}

// Dispatch resolves the event's target groups, delivers the rendered
// notification to every member concurrently and reports the outcome.
// Only an unknown event kind is an error; per-handle failures are
// swallowed and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) (domain.DeliveryReport, error) {
	note, groups, err := render(ev)
	if err != nil {
		return domain.DeliveryReport{}, err
	}

	var targets []subscription.Handle
	for _, g := range groups {
		targets = append(targets, d.reg.Members(g)...)
	}

	report := domain.DeliveryReport{Targeted: len(targets)}
	var mu sync.Mutex

	var grp errgroup.Group
	grp.SetLimit(d.maxInFlight)
	for _, h := range targets {
		h := h
		grp.Go(func() error {
			hctx, cancel := context.WithTimeout(ctx, d.handleTimeout)
			defer cancel()
			if err := h.Send(hctx, note); err != nil {
				mu.Lock()
				report.Failed++
				mu.Unlock()
				d.lg.Debug("delivery_failed", map[string]any{"handle": h.ID(), "reason": err.Error()})
				return nil
			}
			mu.Lock()
			report.Delivered++
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()

	if d.relay != nil {
		msg := domain.NotificationMessage{
			Kind:       ev.Kind,
			OrderID:    ev.Order.ID,
			CustomerID: ev.Order.CustomerID,
			Title:      note.Title,
			Message:    note.Message,
			Timestamp:  ev.OccurredAt,
		}
		if err := d.relay.PublishNotification(ctx, msg); err != nil {
			d.lg.Warn("relay_publish_failed", err, map[string]any{"order_id": ev.Order.ID})
		}
	}

	d.lg.Info("event_dispatched", map[string]any{
		"kind":      string(ev.Kind),
		"order_id":  ev.Order.ID,
		"targeted":  report.Targeted,
		"delivered": report.Delivered,
		"failed":    report.Failed,
	})
	return report, nil
}

// render picks the target groups and the fixed message template for an
// event kind. Status changes reach both the staff/admin broadcast group
// and the owning customer's private group; creations and deletions are
// staff-facing only.
func render(ev domain.Event) (domain.Notification, []subscription.GroupKey, error) {
	broadcast := []subscription.GroupKey{subscription.Broadcast()}
	both := []subscription.GroupKey{subscription.Broadcast(), subscription.Customer(ev.Order.CustomerID)}

	switch ev.Kind {
	case domain.EventOrderCreated:
		return domain.Notification{
			Title:   "New Order",
			Message: fmt.Sprintf("Customer #%d placed a new order!", ev.Order.CustomerID),
		}, broadcast, nil
	case domain.EventPaidStatusChanged:
		state := "unpaid"
		if ev.PaidTo {
			state = "paid"
		}
		return domain.Notification{
			Title:   "Payment Update",
			Message: fmt.Sprintf("Order #%d is now %s.", ev.Order.ID, state),
		}, both, nil
	case domain.EventJugStatusChanged:
		return domain.Notification{
			Title:   "Delivery Update",
			Message: fmt.Sprintf("Your delivery #%d is now %s.", ev.Order.ID, ev.JugTo.Label()),
		}, both, nil
	case domain.EventOrderDeleted:
		return domain.Notification{
			Title:   "Order Removed",
			Message: fmt.Sprintf("Order #%d was removed.", ev.Order.ID),
		}, broadcast, nil
	}
	return domain.Notification{}, nil, fmt.Errorf("dispatch: unknown event kind %q: %w", ev.Kind, domain.ErrPrecondition)
}
