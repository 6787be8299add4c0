package transition

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-delivery-system/internal/domain"
)

func sampleOrder() domain.Order {
	return domain.Order{
		ID:         42,
		CustomerID: 7,
		Amount:     decimal.NewFromInt(50),
		Paid:       false,
		JugStatus:  domain.JugPickedUp,
	}
}

func TestDetectBothNil(t *testing.T) {
	_, err := Detect(nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestDetectCreation(t *testing.T) {
	o := sampleOrder()
	events, err := Detect(nil, &o)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderCreated, events[0].Kind)
	assert.Equal(t, o.ID, events[0].Order.ID)
}

func TestDetectCreationAlreadyPaid(t *testing.T) {
	o := sampleOrder()
	o.Paid = true
	events, err := Detect(nil, &o)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventOrderCreated, events[0].Kind)
	assert.Equal(t, domain.EventPaidStatusChanged, events[1].Kind)
	assert.False(t, events[1].PaidFrom)
	assert.True(t, events[1].PaidTo)
}

func TestDetectDeletion(t *testing.T) {
	o := sampleOrder()
	o.Paid = true
	events, err := Detect(&o, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventOrderDeleted, events[0].Kind)
	// deletion carries the last snapshot so the ledger can reverse it
	assert.True(t, events[0].Order.Paid)
}

func TestDetectPaidFlip(t *testing.T) {
	old := sampleOrder()
	upd := old
	upd.Paid = true
	events, err := Detect(&old, &upd)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPaidStatusChanged, events[0].Kind)
	assert.False(t, events[0].PaidFrom)
	assert.True(t, events[0].PaidTo)
}

func TestDetectJugStatusChange(t *testing.T) {
	old := sampleOrder()
	upd := old
	upd.JugStatus = domain.JugTransporting
	events, err := Detect(&old, &upd)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventJugStatusChanged, events[0].Kind)
	assert.Equal(t, domain.JugPickedUp, events[0].JugFrom)
	assert.Equal(t, domain.JugTransporting, events[0].JugTo)
}

func TestDetectBothFieldsChange(t *testing.T) {
	old := sampleOrder()
	upd := old
	upd.Paid = true
	upd.JugStatus = domain.JugDelivered
	events, err := Detect(&old, &upd)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventPaidStatusChanged, events[0].Kind)
	assert.Equal(t, domain.EventJugStatusChanged, events[1].Kind)
}

// Re-applying detection on an unchanged pair must be a no-op.
func TestDetectNoChange(t *testing.T) {
	old := sampleOrder()
	upd := old
	events, err := Detect(&old, &upd)
	require.NoError(t, err)
	assert.Empty(t, events)

	// second pass, still nothing
	events, err = Detect(&upd, &upd)
	require.NoError(t, err)
	assert.Empty(t, events)
}
