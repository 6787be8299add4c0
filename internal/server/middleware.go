package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"water-delivery-system/internal/common/logger"
	"water-delivery-system/internal/domain"
)

const (
	ctxIdentity  = "identity"
	ctxRequestID = "rid"

	headerRole     = "X-Actor-Role"
	headerCustomer = "X-Actor-Customer"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(ctxRequestID, rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

func AccessLog(lg *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get(ctxRequestID)
		lg.Debug("http_request", map[string]any{
			"request_id": rid,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
		})
	}
}

// Identity resolves the caller identity the authentication collaborator
// hands us in headers: a staff position or the caller's customer id.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ident domain.Identity
		if pos := domain.Position(c.GetHeader(headerRole)); pos.Valid() {
			ident.StaffPosition = pos
		}
		if raw := c.GetHeader(headerCustomer); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
				ident.CustomerID = id
			}
		}
		c.Set(ctxIdentity, ident)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return domain.Identity{}
	}
	ident, _ := v.(domain.Identity)
	return ident
}

// RequireStaff guards the staff-facing mutation and reporting routes.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identityFrom(c).IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff session required"})
			return
		}
		c.Next()
	}
}
