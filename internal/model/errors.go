package model

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidPassword    = errors.New("current password does not match")
	ErrInvalidRole        = errors.New("invalid role")
	ErrSelfDeactivation   = errors.New("cannot deactivate own account")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrEmailDelivery      = errors.New("email delivery failed")
)
