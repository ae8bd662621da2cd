package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/infrastructure/http/v1/dto"
	"ledgerbook/pkg/logger"
)

// ErrorHandler writes the last handler error as a JSON body.
// Internal causes are logged and never returned to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			body := dto.ErrorResponse{
				Code:    apperror.CodeInternal,
				Message: "Internal server error",
				Details: map[string]any{"request_id": appctx.RequestID(c.Request.Context())},
			}
			failIdempotency(c, http.StatusInternalServerError, body)
			c.JSON(http.StatusInternalServerError, body)
			return
		}

		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}

		body := dto.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
		status := appErr.HTTPStatus
		if status == 0 {
			status = apperror.GetHTTPStatus(appErr)
		}
		failIdempotency(c, status, body)
		c.JSON(status, body)
	}
}
