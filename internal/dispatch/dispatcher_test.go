package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
	"water-delivery-system/internal/subscription"
)

// fakeHandle records received notifications; fail makes Send error,
// stall makes it block until the per-handle context expires.
type fakeHandle struct {
	id    string
	fail  bool
	stall bool

	mu       sync.Mutex
	received []domain.Notification
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Send(ctx context.Context, n domain.Notification) error {
	if h.fail {
		return errors.New("connection closed")
	}
	if h.stall {
		<-ctx.Done()
		return ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, n)
	return nil
}

func (h *fakeHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

var (
	staffIdent    = domain.Identity{StaffPosition: domain.PositionAdmin}
	customerIdent = domain.Identity{CustomerID: 7}
)

func jugEvent() domain.Event {
	return domain.Event{
		Kind: domain.EventJugStatusChanged,
		Order: domain.Order{
			ID:         42,
			CustomerID: 7,
			Amount:     decimal.NewFromInt(50),
		},
		JugFrom:    domain.JugPickedUp,
		JugTo:      domain.JugTransporting,
		OccurredAt: time.Now().UTC(),
	}
}

func TestDispatchJugChangeReachesStaffAndCustomer(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	s1 := &fakeHandle{id: "s1"}
	s2 := &fakeHandle{id: "s2"}
	c1 := &fakeHandle{id: "c1"}
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, s1))
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, s2))
	require.NoError(t, reg.Join(subscription.Customer(7), customerIdent, c1))

	d := New(reg, nil, logger.New("test"), time.Second, 8)
	report, err := d.Dispatch(context.Background(), jugEvent())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Targeted)
	assert.Equal(t, 3, report.Delivered)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, c1.count())
	assert.Contains(t, c1.received[0].Message, "Your delivery #42 is now Transporting")
}

func TestDispatchCountsDeadHandleAndCarriesOn(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	alive := &fakeHandle{id: "s1"}
	dead := &fakeHandle{id: "s2", fail: true}
	c1 := &fakeHandle{id: "c1"}
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, alive))
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, dead))
	require.NoError(t, reg.Join(subscription.Customer(7), customerIdent, c1))

	d := New(reg, nil, logger.New("test"), time.Second, 8)
	report, err := d.Dispatch(context.Background(), jugEvent())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Targeted)
	assert.Equal(t, 2, report.Delivered)
	assert.Equal(t, 1, report.Failed)
}

func TestDispatchStalledHandleDoesNotBlockOthers(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	stalled := &fakeHandle{id: "s1", stall: true}
	fast := &fakeHandle{id: "s2"}
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, stalled))
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, fast))

	d := New(reg, nil, logger.New("test"), 50*time.Millisecond, 8)
	start := time.Now()
	report, err := d.Dispatch(context.Background(), jugEvent())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, fast.count())
}

func TestDispatchCreationIsBroadcastOnly(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	s1 := &fakeHandle{id: "s1"}
	c1 := &fakeHandle{id: "c1"}
	require.NoError(t, reg.Join(subscription.Broadcast(), staffIdent, s1))
	require.NoError(t, reg.Join(subscription.Customer(7), customerIdent, c1))

	ev := jugEvent()
	ev.Kind = domain.EventOrderCreated
	d := New(reg, nil, logger.New("test"), time.Second, 8)
	report, err := d.Dispatch(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Targeted)
	assert.Equal(t, 1, s1.count())
	assert.Equal(t, 0, c1.count())
}

func TestDispatchEmptyGroupsIsFine(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	d := New(reg, nil, logger.New("test"), time.Second, 8)
	report, err := d.Dispatch(context.Background(), jugEvent())
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryReport{}, report)
}

func TestDispatchUnknownKind(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	d := New(reg, nil, logger.New("test"), time.Second, 8)
	_, err := d.Dispatch(context.Background(), domain.Event{Kind: "order.exploded"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []domain.NotificationMessage
	err  error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, msg domain.NotificationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestDispatchMirrorsToRelay(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	pub := &recordingPublisher{}
	d := New(reg, pub, logger.New("test"), time.Second, 8)

	_, err := d.Dispatch(context.Background(), jugEvent())
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, int64(42), pub.msgs[0].OrderID)
	assert.Equal(t, int64(7), pub.msgs[0].CustomerID)
}

func TestDispatchRelayFailureIsSwallowed(t *testing.T) {
	reg := subscription.NewRegistry(logger.New("test"))
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := New(reg, pub, logger.New("test"), time.Second, 8)

	_, err := d.Dispatch(context.Background(), jugEvent())
	require.NoError(t, err)
}
