package model

import "github.com/google/uuid"

// TokenManager issues and verifies stateless session tokens. Verify proves
// only signature and expiry; callers must re-check account status themselves.
type TokenManager interface {
	Issue(accountID uuid.UUID) (string, error)
	Verify(token string) (uuid.UUID, error)
}
