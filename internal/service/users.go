package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// statsWindow is the lookback for the activity portion of admin stats.
const statsWindow = 30 * 24 * time.Hour

type Users struct {
	accounts model.AccountStore
	audit    *Audit
	logger   *logger.Logger
}

func NewUsers(accounts model.AccountStore, audit *Audit, logger *logger.Logger) *Users {
	return &Users{
		accounts: accounts,
		audit:    audit,
		logger:   logger,
	}
}

type UpdateUserParams struct {
	AccountID uuid.UUID
	Email     *string
	FirstName *string
	LastName  *string
	Actor     model.Principal
	Meta      model.RequestMeta
}

type ChangeRoleParams struct {
	AccountID uuid.UUID
	Role      model.Role
	Actor     model.Principal
	Meta      model.RequestMeta
}

type DeactivateParams struct {
	AccountID uuid.UUID
	Actor     model.Principal
	Meta      model.RequestMeta
}

type ReactivateParams struct {
	AccountID uuid.UUID
	Actor     model.Principal
	Meta      model.RequestMeta
}

// Stats aggregates account and activity counts for the admin dashboard.
type Stats struct {
	TotalAccounts  int
	AccountsByRole map[model.Role]int
	RecentActions  map[model.AuditAction]int
}

func (u *Users) Get(ctx context.Context, id uuid.UUID) (model.Account, error) {
	account, err := u.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, model.ErrNotFound
		}
		u.logger.Error("Users service: failed to get account",
			"account_id", id.String(),
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

func (u *Users) List(ctx context.Context, filter model.AccountFilter, page model.Page) ([]model.Account, int, error) {
	accounts, total, err := u.accounts.List(ctx, filter, page)
	if err != nil {
		u.logger.Error("Users service: failed to list accounts",
			"error", err.Error())
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accounts, total, nil
}

// Update applies the provided profile fields. Changing the email re-checks
// uniqueness and drops the verified flag until the new address is verified.
func (u *Users) Update(ctx context.Context, params UpdateUserParams) (model.Account, error) {
	account, err := u.accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	changed := make([]string, 0, 3)
	if params.FirstName != nil && *params.FirstName != account.FirstName {
		account.FirstName = *params.FirstName
		changed = append(changed, "first_name")
	}
	if params.LastName != nil && *params.LastName != account.LastName {
		account.LastName = *params.LastName
		changed = append(changed, "last_name")
	}
	if params.Email != nil {
		email := normalizeEmail(*params.Email)
		if email != account.Email {
			account.Email = email
			account.EmailVerified = false
			changed = append(changed, "email")
		}
	}

	if len(changed) == 0 {
		return account, nil
	}

	saved, err := u.accounts.Update(ctx, account)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.Account{}, model.ErrEmailTaken
		}
		u.logger.Error("Users service: failed to update account",
			"account_id", account.ID.String(),
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to update account: %w", err)
	}

	event := newEvent(model.ActionUserUpdate, model.SeverityLow, model.OutcomeSuccess, params.Meta)
	event.ActorID = &params.Actor.ID
	event.ActorEmail = params.Actor.Email
	event.Resource = "account"
	event.ResourceID = resourceID(saved.ID)
	event.Detail = map[string]any{"fields": changed}
	u.audit.RecordAsync(event)

	u.logger.Info("Users service: account updated",
		"account_id", saved.ID.String(),
		"actor_id", params.Actor.ID.String())

	return saved, nil
}

// ChangeRole reassigns the account's role. Granting admin is graded critical
// in the audit trail; every other reassignment is medium.
func (u *Users) ChangeRole(ctx context.Context, params ChangeRoleParams) (model.Account, error) {
	if !params.Role.Valid() {
		return model.Account{}, model.ErrInvalidRole
	}

	account, err := u.accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, model.ErrNotFound
		}
		return model.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	previous := account.Role
	if previous == params.Role {
		return account, nil
	}

	account.Role = params.Role
	saved, err := u.accounts.Update(ctx, account)
	if err != nil {
		u.logger.Error("Users service: failed to change role",
			"account_id", account.ID.String(),
			"error", err.Error())
		return model.Account{}, fmt.Errorf("failed to change role: %w", err)
	}

	severity := model.SeverityMedium
	if params.Role == model.RoleAdmin {
		severity = model.SeverityCritical
	}
	event := newEvent(model.ActionRoleChange, severity, model.OutcomeSuccess, params.Meta)
	event.ActorID = &params.Actor.ID
	event.ActorEmail = params.Actor.Email
	event.Resource = "account"
	event.ResourceID = resourceID(saved.ID)
	event.Detail = map[string]any{"from": string(previous), "to": string(params.Role)}
	if err := u.audit.Record(ctx, event); err != nil {
		return model.Account{}, err
	}

	u.logger.Info("Users service: role changed",
		"account_id", saved.ID.String(),
		"from", string(previous),
		"to", string(params.Role),
		"actor_id", params.Actor.ID.String())

	return saved, nil
}

// Deactivate soft-deletes an account. Admins cannot deactivate themselves,
// so a lone admin cannot lock the system down by accident.
func (u *Users) Deactivate(ctx context.Context, params DeactivateParams) error {
	if params.AccountID == params.Actor.ID {
		return model.ErrSelfDeactivation
	}

	account, err := u.accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if err := u.accounts.Deactivate(ctx, params.AccountID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		u.logger.Error("Users service: failed to deactivate account",
			"account_id", params.AccountID.String(),
			"error", err.Error())
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	event := newEvent(model.ActionUserDeactivate, model.SeverityHigh, model.OutcomeSuccess, params.Meta)
	event.ActorID = &params.Actor.ID
	event.ActorEmail = params.Actor.Email
	event.Resource = "account"
	event.ResourceID = resourceID(params.AccountID)
	event.Detail = map[string]any{"email": account.Email, "role": string(account.Role)}
	if err := u.audit.Record(ctx, event); err != nil {
		return err
	}

	u.logger.Info("Users service: account deactivated",
		"account_id", params.AccountID.String(),
		"actor_id", params.Actor.ID.String())

	return nil
}

// Reactivate lifts a soft delete. The placeholder email stays until someone
// sets a real address on the account.
func (u *Users) Reactivate(ctx context.Context, params ReactivateParams) error {
	if err := u.accounts.Reactivate(ctx, params.AccountID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		u.logger.Error("Users service: failed to reactivate account",
			"account_id", params.AccountID.String(),
			"error", err.Error())
		return fmt.Errorf("failed to reactivate account: %w", err)
	}

	event := newEvent(model.ActionUserReactivate, model.SeverityMedium, model.OutcomeSuccess, params.Meta)
	event.ActorID = &params.Actor.ID
	event.ActorEmail = params.Actor.Email
	event.Resource = "account"
	event.ResourceID = resourceID(params.AccountID)
	if err := u.audit.Record(ctx, event); err != nil {
		return err
	}

	u.logger.Info("Users service: account reactivated",
		"account_id", params.AccountID.String(),
		"actor_id", params.Actor.ID.String())

	return nil
}

func (u *Users) Stats(ctx context.Context) (Stats, error) {
	byRole, err := u.accounts.CountByRole(ctx)
	if err != nil {
		u.logger.Error("Users service: failed to count accounts",
			"error", err.Error())
		return Stats{}, fmt.Errorf("failed to count accounts: %w", err)
	}

	actions, err := u.audit.CountByAction(ctx, time.Now().Add(-statsWindow))
	if err != nil {
		return Stats{}, err
	}

	total := 0
	for _, count := range byRole {
		total += count
	}

	return Stats{
		TotalAccounts:  total,
		AccountsByRole: byRole,
		RecentActions:  actions,
	}, nil
}
