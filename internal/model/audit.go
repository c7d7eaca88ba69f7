package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditStore defines persistence operations for audit events. The log is
// append-only: no update or delete operation exists on this contract.
type AuditStore interface {
	Create(ctx context.Context, event AuditEvent) (AuditEvent, error)
	List(ctx context.Context, filter AuditFilter, page Page) ([]AuditEvent, int, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, page Page) ([]AuditEvent, int, error)
	CountByAction(ctx context.Context, since time.Time) (map[AuditAction]int, error)
}

// AuditAction enumerates auditable action kinds.
type AuditAction string

const (
	ActionRegister           AuditAction = "REGISTER"
	ActionLogin              AuditAction = "LOGIN"
	ActionLogout             AuditAction = "LOGOUT"
	ActionEmailVerify        AuditAction = "EMAIL_VERIFY"
	ActionPasswordReset      AuditAction = "PASSWORD_RESET"
	ActionUserUpdate         AuditAction = "USER_UPDATE"
	ActionRoleChange         AuditAction = "ROLE_CHANGE"
	ActionUserDeactivate     AuditAction = "USER_DEACTIVATE"
	ActionUserReactivate     AuditAction = "USER_REACTIVATE"
	ActionUnauthorizedAccess AuditAction = "UNAUTHORIZED_ACCESS"
	ActionDataExport         AuditAction = "DATA_EXPORT"
)

// AuditSeverity grades how sensitive an event is.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "LOW"
	SeverityMedium   AuditSeverity = "MEDIUM"
	SeverityHigh     AuditSeverity = "HIGH"
	SeverityCritical AuditSeverity = "CRITICAL"
)

// AuditOutcome records how the audited action ended.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "SUCCESS"
	OutcomeFailure AuditOutcome = "FAILURE"
	OutcomeWarning AuditOutcome = "WARNING"
)

// AuditEvent is an immutable security log record. ActorID is nil when the
// action was attempted without an authenticated identity.
type AuditEvent struct {
	ID         uuid.UUID
	ActorID    *uuid.UUID
	ActorEmail string
	Action     AuditAction
	Resource   string
	ResourceID *string
	Detail     map[string]any
	IP         string
	UserAgent  string
	Severity   AuditSeverity
	Outcome    AuditOutcome
	CreatedAt  time.Time
}

// AuditFilter narrows audit queries. Zero values match everything.
type AuditFilter struct {
	Action   AuditAction
	Resource string
	Severity AuditSeverity
	Outcome  AuditOutcome
	ActorID  *uuid.UUID
	From     *time.Time
	To       *time.Time
}

// Valid reports whether a is one of the closed action set.
func (a AuditAction) Valid() bool {
	switch a {
	case ActionRegister, ActionLogin, ActionLogout, ActionEmailVerify,
		ActionPasswordReset, ActionUserUpdate, ActionRoleChange,
		ActionUserDeactivate, ActionUserReactivate,
		ActionUnauthorizedAccess, ActionDataExport:
		return true
	}
	return false
}

// Valid reports whether s is one of the closed severity set.
func (s AuditSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Valid reports whether o is one of the closed outcome set.
func (o AuditOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeWarning:
		return true
	}
	return false
}
