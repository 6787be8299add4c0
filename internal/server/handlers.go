package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
	"water-delivery-system/internal/orders"
	"water-delivery-system/internal/subscription"
)

func NewRouter(svc *orders.Service, reg *subscription.Registry, lg *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(lg), Identity())

	h := &handlers{svc: svc, reg: reg, lg: lg}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.POST("/orders", h.createOrder)
	r.GET("/orders/:id", h.getOrder)
	r.GET("/orders", h.listOrders)
	r.PUT("/orders/:id", RequireStaff(), h.updateOrder)
	r.DELETE("/orders/:id", RequireStaff(), h.deleteOrder)

	r.GET("/customers/:id", h.getCustomer)
	r.GET("/sales/:date", RequireStaff(), h.salesSummary)

	r.GET("/notifications/stream", h.stream)
	return r
}

type handlers struct {
	svc *orders.Service
	reg *subscription.Registry
	lg  *logger.Logger
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalid), errors.Is(err, domain.ErrPrecondition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *handlers) createOrder(c *gin.Context) {
	var req orders.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return
	}
	ident := identityFrom(c)
	// customers may only order for themselves
	if !ident.IsStaff() {
		if !ident.IsCustomer() {
			c.JSON(http.StatusForbidden, gin.H{"error": "session required"})
			return
		}
		req.CustomerID = ident.CustomerID
	}

	o, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *handlers) getOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad order id"})
		return
	}
	o, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ident := identityFrom(c)
	if !ident.IsStaff() && ident.CustomerID != o.CustomerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your order"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	ident := identityFrom(c)
	customerID := ident.CustomerID
	if ident.IsStaff() {
		if raw := c.Query("customer_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad customer_id"})
				return
			}
			customerID = id
		}
	}
	if customerID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "session required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.svc.ListByCustomer(c.Request.Context(), customerID, limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *handlers) updateOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad order id"})
		return
	}
	var req orders.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return
	}
	o, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) deleteOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad order id"})
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getCustomer(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad customer id"})
		return
	}
	ident := identityFrom(c)
	if !ident.IsStaff() && ident.CustomerID != id {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your account"})
		return
	}
	cust, err := h.svc.GetCustomer(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *handlers) salesSummary(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad date, want YYYY-MM-DD"})
		return
	}
	sum, err := h.svc.SalesSummary(c.Request.Context(), date)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
