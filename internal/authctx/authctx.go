// Package authctx carries the authenticated actor through a request context
// so the service pipeline can stamp audit fields without depending on the
// HTTP layer.
package authctx

import (
	"context"

	"github.com/google/uuid"
)

type userIDKey struct{}
type roleKey struct{}

// WithUserID binds the authenticated user's id to the context
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the authenticated user's id, if any
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}

// WithRole binds the authenticated user's role to the context
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// Role returns the authenticated user's role, if any
func Role(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey{}).(string)
	return role, ok
}
