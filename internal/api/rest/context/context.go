package context

import (
	"context"

	"github.com/classhub/classhub-server/internal/model"
)

// principalKey is the private context key used to store and retrieve the
// authenticated principal.
type principalKey struct{}

// Manager represents a request context manager for principal operations.
// It provides methods to set and retrieve the authenticated account identity
// from request contexts.
type Manager struct{}

// NewManager creates a new request context manager instance.
//
// Returns a pointer to the newly created Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetPrincipalToContext stores the authenticated principal in the context.
//
// Parameters:
//   - ctx: The request context
//   - principal: The authenticated account identity
//
// Returns a new context carrying the principal.
func (m *Manager) SetPrincipalToContext(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipalFromContext retrieves the authenticated principal from the
// context.
//
// Parameters:
//   - ctx: The request context
//
// Returns the principal and a boolean indicating if one was found.
func (m *Manager) GetPrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(model.Principal)
	return principal, ok
}
