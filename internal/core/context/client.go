// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// ClientContext contains the authenticated API client.
type ClientContext struct {
	Subject string
	Scopes  []string
}

type clientContextKey struct{}

// WithClient adds ClientContext to context.
func WithClient(ctx context.Context, client *ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, client)
}

// GetClient returns ClientContext from context.
func GetClient(ctx context.Context) *ClientContext {
	if v, ok := ctx.Value(clientContextKey{}).(*ClientContext); ok {
		return v
	}
	return nil
}

// GetSubject returns client subject from context or empty string.
func GetSubject(ctx context.Context) string {
	if c := GetClient(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// HasScope checks if client was granted a specific scope.
func HasScope(ctx context.Context, scope string) bool {
	c := GetClient(ctx)
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
