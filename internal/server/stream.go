package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"water-delivery-system/internal/domain"
	"water-delivery-system/internal/subscription"
)

// streamHandle backs one SSE connection with a buffered channel. Send
// fails when the buffer is full and the dispatcher's per-handle timeout
// expires, which counts as a failed delivery for that subscriber.
type streamHandle struct {
	id string
	ch chan domain.Notification
}

func newStreamHandle() *streamHandle {
	return &streamHandle{id: uuid.NewString(), ch: make(chan domain.Notification, 16)}
}

func (h *streamHandle) ID() string { return h.id }

func (h *streamHandle) Send(ctx context.Context, n domain.Notification) error {
	select {
	case h.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stream subscribes the caller to its notification group and relays
// messages as server-sent events until the client disconnects. Staff
// sessions land in the broadcast group; customer sessions in their own
// private group. group=customer lets a staff member with a customer
// header pick explicitly.
func (h *handlers) stream(c *gin.Context) {
	ident := identityFrom(c)
	if !ident.IsStaff() && !ident.IsCustomer() {
		c.JSON(http.StatusForbidden, gin.H{"error": "session required"})
		return
	}

	var key subscription.GroupKey
	switch {
	case c.Query("group") == "customer" || !ident.IsStaff():
		key = subscription.Customer(ident.CustomerID)
	default:
		key = subscription.Broadcast()
	}

	handle := newStreamHandle()
	if err := h.reg.Join(key, ident, handle); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to subscribe to this group"})
			return
		}
		fail(c, err)
		return
	}
	defer h.reg.Leave(key, handle.ID())

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	// flush headers so the subscriber sees the stream open before the
	// first notification arrives
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case n := <-handle.ch:
			c.SSEvent("notification", n)
			return true
		case <-done:
			return false
		}
	})
}
