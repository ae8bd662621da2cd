// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/apperror"
	appctx "ledgerbook/internal/core/context"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/infrastructure/http/v1/dto"
	"ledgerbook/internal/infrastructure/http/v1/middleware"
)

// maxPageSize caps the limit query parameter.
const maxPageSize = 500

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the gin context and aborts.
// middleware.ErrorHandler renders the response.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// BusinessID returns the business the request is scoped to.
func (h *BaseHandler) BusinessID(c *gin.Context) string {
	if scope := appctx.GetScope(c.Request.Context()); scope != nil {
		return scope.BusinessID
	}
	return c.Param(middleware.ParamBusinessID)
}

// PathID parses a UUID route parameter.
func (h *BaseHandler) PathID(c *gin.Context, param string) (id.ID, bool) {
	raw := c.Param(param)
	parsed, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id").
			WithDetail("field", param).
			WithDetail("value", raw))
		return id.Nil(), false
	}
	return parsed, true
}

// QueryID parses an optional UUID query parameter.
func (h *BaseHandler) QueryID(c *gin.Context, key string) (*id.ID, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, true
	}
	parsed, err := dto.ParseOptionalID(key, &raw)
	if err != nil {
		h.Error(c, err)
		return nil, false
	}
	return parsed, true
}

// ParseIntQuery parses integer query parameter with default value.
func (h *BaseHandler) ParseIntQuery(c *gin.Context, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseDateQuery parses an optional date (2006-01-02) or RFC3339 query parameter.
func (h *BaseHandler) ParseDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	h.Error(c, apperror.NewValidation("invalid date").
		WithDetail("field", key).
		WithDetail("value", raw))
	return nil, false
}

// ListFilter reads the common paging, search and date parameters.
func (h *BaseHandler) ListFilter(c *gin.Context) (domain.ListFilter, bool) {
	f := domain.DefaultListFilter(h.BusinessID(c))
	f.Search = c.Query("search")
	f.OrderBy = c.Query("orderBy")
	f.Limit = h.ParseIntQuery(c, "limit", f.Limit)
	f.Offset = h.ParseIntQuery(c, "offset", 0)
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var ok bool
	if f.DateFrom, ok = h.ParseDateQuery(c, "from"); !ok {
		return f, false
	}
	if f.DateTo, ok = h.ParseDateQuery(c, "to"); !ok {
		return f, false
	}
	return f, true
}

// Created sends 201 response with body.
func (h *BaseHandler) Created(c *gin.Context, body any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", body)
	c.JSON(http.StatusCreated, body)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}
