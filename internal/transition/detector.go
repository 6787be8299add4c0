// Package transition turns before/after order snapshots into semantic
// events. Detection is pure: the caller runs it inside the same
// transaction that persisted the mutation and feeds the result to the
// ledger and the dispatcher.
package transition

import (
	"fmt"
	"time"

	"water-delivery-system/internal/domain"
)

// Detect compares the previous and new persisted state of an order and
// returns the events that occurred. old == nil means creation, new == nil
// means deletion. Both nil is an impossible input and fails the
// precondition. Re-running Detect on an unchanged pair yields no events.
func Detect(old, updated *domain.Order) ([]domain.Event, error) {
	now := time.Now().UTC()

	switch {
	case old == nil && updated == nil:
		return nil, fmt.Errorf("detect: both order snapshots are nil: %w", domain.ErrPrecondition)

	case old == nil:
		events := []domain.Event{{
			Kind:       domain.EventOrderCreated,
			Order:      *updated,
			OccurredAt: now,
		}}
		// An order paid at creation also emits a paid-status event so the
		// ledger has a single code path for settlement.
		if updated.Paid {
			events = append(events, domain.Event{
				Kind:       domain.EventPaidStatusChanged,
				Order:      *updated,
				PaidFrom:   false,
				PaidTo:     true,
				OccurredAt: now,
			})
		}
		return events, nil

	case updated == nil:
		return []domain.Event{{
			Kind:       domain.EventOrderDeleted,
			Order:      *old,
			OccurredAt: now,
		}}, nil
	}

	var events []domain.Event
	if old.Paid != updated.Paid {
		events = append(events, domain.Event{
			Kind:       domain.EventPaidStatusChanged,
			Order:      *updated,
			PaidFrom:   old.Paid,
			PaidTo:     updated.Paid,
			OccurredAt: now,
		})
	}
	if old.JugStatus != updated.JugStatus {
		events = append(events, domain.Event{
			Kind:       domain.EventJugStatusChanged,
			Order:      *updated,
			JugFrom:    old.JugStatus,
			JugTo:      updated.JugStatus,
			OccurredAt: now,
		})
	}
	return events, nil
}
