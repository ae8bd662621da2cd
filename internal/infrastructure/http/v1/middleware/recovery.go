// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/infrastructure/http/v1/dto"
	"ledgerbook/pkg/logger"
)

// Recovery turns a handler panic into a 500 response.
// The stack goes to the log, never to the client. Recovery runs outside
// ErrorHandler, so it writes the body itself.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", rec,
					"path", c.FullPath(),
					"stack", string(debug.Stack()),
				)
				body := dto.ErrorResponse{
					Code:    apperror.CodeInternal,
					Message: "Internal server error",
					Details: map[string]any{"request_id": appctx.RequestID(c.Request.Context())},
				}
				failIdempotency(c, http.StatusInternalServerError, body)
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
			}
		}()
		c.Next()
	}
}
