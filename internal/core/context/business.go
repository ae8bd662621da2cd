// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// RequestScope carries the identifiers a request was issued for.
// It feeds log correlation only: engine operations always receive
// businessID as an explicit argument.
type RequestScope struct {
	BusinessID string
	ActorID    string
}

type requestScopeKey struct{}

// WithScope adds RequestScope to context.
func WithScope(ctx context.Context, scope *RequestScope) context.Context {
	return context.WithValue(ctx, requestScopeKey{}, scope)
}

// GetScope returns RequestScope from context.
func GetScope(ctx context.Context) *RequestScope {
	if v, ok := ctx.Value(requestScopeKey{}).(*RequestScope); ok {
		return v
	}
	return nil
}

// GetActorID returns the acting user or client identifier, or empty string.
func GetActorID(ctx context.Context) string {
	if s := GetScope(ctx); s != nil {
		return s.ActorID
	}
	return ""
}
