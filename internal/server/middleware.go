package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/clinicbill/internal/auditcontext"
	obscontext "github.com/smallbiznis/clinicbill/internal/observability/context"
)

const HeaderUserID = "X-User-Id"

// ActorContext carries the calling user from the X-User-Id header into the
// request context for audit entries and logs. The invoice id route param is
// attached as well.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if userID := strings.TrimSpace(c.GetHeader(HeaderUserID)); userID != "" {
			ctx = auditcontext.WithActorID(ctx, userID)
			ctx = obscontext.WithActorID(ctx, userID)
		}
		if invoiceID := strings.TrimSpace(c.Param("id")); invoiceID != "" {
			ctx = obscontext.WithInvoiceID(ctx, invoiceID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// actorID prefers the userId from the request body over the header.
func actorID(c *gin.Context, fromBody string) string {
	if v := strings.TrimSpace(fromBody); v != "" {
		return v
	}
	return auditcontext.FromContext(c.Request.Context()).ActorID
}
