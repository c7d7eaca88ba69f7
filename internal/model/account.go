package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountStore defines persistence operations for accounts.
type AccountStore interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	GetByVerifyToken(ctx context.Context, token string) (Account, error)
	GetByResetToken(ctx context.Context, token string) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockFor time.Duration) (int, error)
	ResetLoginFailures(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter AccountFilter, page Page) ([]Account, int, error)
	CountByRole(ctx context.Context) (map[Role]int, error)
}

// Account represents a stored account with authentication material.
type Account struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Role              Role
	Active            bool
	EmailVerified     bool
	FailedLogins      int
	LockedUntil       *time.Time
	LastLoginAt       *time.Time
	VerifyToken       *string
	ResetToken        *string
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeactivatedAt     *time.Time
}

// Locked reports whether the account is under an active lockout at now.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// AccountFilter narrows account listings. Zero values match everything.
type AccountFilter struct {
	Role   Role
	Active *bool
	Search string
}
