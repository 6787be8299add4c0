package subscription

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
)

type nopHandle struct{ id string }

func (h nopHandle) ID() string                                      { return h.id }
func (h nopHandle) Send(context.Context, domain.Notification) error { return nil }

var (
	staffIdent    = domain.Identity{StaffPosition: domain.PositionStaff}
	customerIdent = domain.Identity{CustomerID: 7}
)

func TestJoinBroadcastRequiresStaff(t *testing.T) {
	r := NewRegistry(logger.New("test"))

	err := r.Join(Broadcast(), customerIdent, nopHandle{id: "c1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, r.Members(Broadcast()))

	require.NoError(t, r.Join(Broadcast(), staffIdent, nopHandle{id: "s1"}))
	assert.Len(t, r.Members(Broadcast()), 1)
}

func TestJoinPrivateGroupRejectsOtherCustomer(t *testing.T) {
	r := NewRegistry(logger.New("test"))

	// customer 7 trying to join customer 9's group
	err := r.Join(Customer(9), customerIdent, nopHandle{id: "c1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, r.Members(Customer(9)))

	require.NoError(t, r.Join(Customer(7), customerIdent, nopHandle{id: "c1"}))
	assert.Len(t, r.Members(Customer(7)), 1)
}

func TestJoinStaffCannotEnterPrivateGroup(t *testing.T) {
	r := NewRegistry(logger.New("test"))
	err := r.Join(Customer(7), staffIdent, nopHandle{id: "s1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRejoinIsIdempotent(t *testing.T) {
	r := NewRegistry(logger.New("test"))
	require.NoError(t, r.Join(Broadcast(), staffIdent, nopHandle{id: "s1"}))
	require.NoError(t, r.Join(Broadcast(), staffIdent, nopHandle{id: "s1"}))
	assert.Len(t, r.Members(Broadcast()), 1)
}

func TestLeaveUnknownHandleIsNoop(t *testing.T) {
	r := NewRegistry(logger.New("test"))
	r.Leave(Broadcast(), "ghost")
	require.NoError(t, r.Join(Broadcast(), staffIdent, nopHandle{id: "s1"}))
	r.Leave(Broadcast(), "ghost")
	assert.Len(t, r.Members(Broadcast()), 1)

	r.Leave(Broadcast(), "s1")
	assert.Empty(t, r.Members(Broadcast()))
}

func TestMembersIsASnapshot(t *testing.T) {
	r := NewRegistry(logger.New("test"))
	require.NoError(t, r.Join(Broadcast(), staffIdent, nopHandle{id: "s1"}))
	members := r.Members(Broadcast())
	r.Leave(Broadcast(), "s1")
	// the snapshot taken before the leave is still intact
	assert.Len(t, members, 1)
}

func TestConcurrentJoinLeave(t *testing.T) {
	r := NewRegistry(logger.New("test"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", n)
			_ = r.Join(Broadcast(), staffIdent, nopHandle{id: id})
			_ = r.Members(Broadcast())
			if n%2 == 0 {
				r.Leave(Broadcast(), id)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, r.Members(Broadcast()), 25)
}
