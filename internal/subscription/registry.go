// Package subscription tracks which live connection handles belong to
// which notification group: one shared broadcast group for staff/admin
// sessions and one private group per customer. Membership lives only in
// memory; a restart drops every subscription.
package subscription

import (
	"context"
	"fmt"
	"sync"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
)

// Handle is one live connection. Send may block or fail; the dispatcher
// wraps it with its own timeout.
type Handle interface {
	ID() string
	Send(ctx context.Context, n domain.Notification) error
}

type GroupKey struct {
	kind       string
	customerID int64
}

const (
	kindBroadcast = "broadcast"
	kindCustomer  = "customer"
)

// Broadcast is the staff/admin group key.
func Broadcast() GroupKey { return GroupKey{kind: kindBroadcast} }

// Customer is the private group key for one customer's own sessions.
func Customer(id int64) GroupKey { return GroupKey{kind: kindCustomer, customerID: id} }

func (k GroupKey) String() string {
	if k.kind == kindCustomer {
		return fmt.Sprintf("customer:%d", k.customerID)
	}
	return k.kind
}

type Registry struct {
	mu     sync.RWMutex
	groups map[GroupKey]map[string]Handle
	lg     *logger.Logger
}

func NewRegistry(lg *logger.Logger) *Registry {
	return &Registry{groups: map[GroupKey]map[string]Handle{}, lg: lg}
}

// Join adds a handle to a group after verifying the caller may be there.
// The check is part of the core: it is what keeps one customer's status
// updates out of another customer's channel. Rejoining with the same
// handle ID is idempotent.
func (r *Registry) Join(key GroupKey, ident domain.Identity, h Handle) error {
	if err := authorize(key, ident); err != nil {
		r.lg.Warn("subscription_rejected", err, map[string]any{"group": key.String(), "handle": h.ID()})
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[key]
	if !ok {
		g = map[string]Handle{}
		r.groups[key] = g
	}
	g[h.ID()] = h
	r.lg.Debug("subscription_joined", map[string]any{"group": key.String(), "handle": h.ID(), "members": len(g)})
	return nil
}

// Leave removes a handle. Unknown handles are ignored so disconnects
// racing with shutdown stay harmless.
func (r *Registry) Leave(key GroupKey, handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[key]
	if !ok {
		return
	}
	delete(g, handleID)
	if len(g) == 0 {
		delete(r.groups, key)
	}
}

// Members returns a snapshot of the group, safe to iterate while other
// connections join and leave.
func (r *Registry) Members(key GroupKey) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.groups[key]
	out := make([]Handle, 0, len(g))
	for _, h := range g {
		out = append(out, h)
	}
	return out
}

func authorize(key GroupKey, ident domain.Identity) error {
	switch key.kind {
	case kindBroadcast:
		if !ident.IsStaff() {
			return fmt.Errorf("broadcast group requires a staff session: %w", domain.ErrUnauthorized)
		}
	case kindCustomer:
		if ident.CustomerID != key.customerID {
			return fmt.Errorf("group %s belongs to another customer: %w", key.String(), domain.ErrUnauthorized)
		}
	default:
		return fmt.Errorf("unknown group kind %q: %w", key.kind, domain.ErrPrecondition)
	}
	return nil
}
