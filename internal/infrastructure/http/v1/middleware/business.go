package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
)

// HeaderActorID optionally names the user or client acting on the business.
const HeaderActorID = "X-Actor-ID"

// ParamBusinessID is the route parameter holding the business identifier.
const ParamBusinessID = "businessId"

// Business reads the business from the route and puts the request scope
// into the context. Routes without the parameter are rejected.
func Business() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID := strings.TrimSpace(c.Param(ParamBusinessID))
		if businessID == "" {
			_ = c.Error(apperror.NewValidation("business id is required").
				WithDetail("field", ParamBusinessID))
			c.Abort()
			return
		}

		ctx := appctx.WithScope(c.Request.Context(), &appctx.RequestScope{
			BusinessID: businessID,
			ActorID:    strings.TrimSpace(c.GetHeader(HeaderActorID)),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
