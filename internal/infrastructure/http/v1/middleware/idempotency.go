package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/core/idempotency"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

// Idempotency replays the stored response for a repeated X-Idempotency-Key.
// Keys are scoped per business; the request body hash must match.
func Idempotency(store idempotency.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		businessID := ""
		if scope := appctx.GetScope(c.Request.Context()); scope != nil {
			businessID = scope.BusinessID
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)

		operation := c.Request.Method + " " + c.FullPath()
		replay, err := store.AcquireKey(c.Request.Context(), key, businessID, operation, hex.EncodeToString(sum[:]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replay", "true")
			if replay.StatusCode == http.StatusNoContent {
				c.Status(http.StatusNoContent)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyBusiness, businessID)
		c.Set(ctxIdempotency, store)
		c.Next()
	}
}

// CompleteIdempotency records a successful response under the request's key, if any.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	if key, businessID, store, ok := idempotencyOf(c); ok {
		_ = store.CompleteKey(c.Request.Context(), key, businessID, statusCode, contentType, response)
	}
}

func failIdempotency(c *gin.Context, statusCode int, response any) {
	if key, businessID, store, ok := idempotencyOf(c); ok {
		_ = store.FailKey(c.Request.Context(), key, businessID, statusCode, "application/json", response)
	}
}

func idempotencyOf(c *gin.Context) (key, businessID string, store idempotency.Store, ok bool) {
	key = c.GetString(ctxIdempotencyKey)
	if key == "" {
		return "", "", nil, false
	}
	v, found := c.Get(ctxIdempotency)
	if !found {
		return "", "", nil, false
	}
	store, ok = v.(idempotency.Store)
	return key, c.GetString(ctxIdempotencyBusiness), store, ok && store != nil
}
