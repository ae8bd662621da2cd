// Package dto holds the request and response bodies of the v1 API.
package dto

import (
	"strings"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
)

// IDResponse returns the identifier of a created record.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is the body of operations with nothing else to return.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the body the error middleware writes.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ParseOptionalID parses an optional UUID field, naming it in the error.
func ParseOptionalID(field string, s *string) (*id.ID, error) {
	if s == nil {
		return nil, nil
	}
	parsed, err := id.ParseOptional(strings.TrimSpace(*s))
	if err != nil {
		return nil, apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", *s)
	}
	return parsed, nil
}
