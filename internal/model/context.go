package model

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the authenticated identity attached to a request context.
type Principal struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// RequestMeta carries request origin fields into audit events.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type ContextManager interface {
	SetPrincipalToContext(ctx context.Context, principal Principal) context.Context
	GetPrincipalFromContext(ctx context.Context) (Principal, bool)
}
