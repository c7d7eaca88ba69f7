package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/classhub/classhub-server/internal/config"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// mailSendTimeout bounds background email sends detached from the request.
const mailSendTimeout = 15 * time.Second

type Auth struct {
	accounts model.AccountStore
	audit    *Audit
	tokens   model.TokenManager
	mailer   model.Mailer
	logger   *logger.Logger
	cfg      config.Auth
}

func NewAuth(
	accounts model.AccountStore,
	audit *Audit,
	tokens model.TokenManager,
	mailer model.Mailer,
	logger *logger.Logger,
	cfg config.Auth,
) *Auth {
	return &Auth{
		accounts: accounts,
		audit:    audit,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
		cfg:      cfg,
	}
}

type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
	Meta      model.RequestMeta
}

type LoginParams struct {
	Email    string
	Password string
	Meta     model.RequestMeta
}

type VerifyEmailParams struct {
	Token string
	Meta  model.RequestMeta
}

type ForgotPasswordParams struct {
	Email string
	Meta  model.RequestMeta
}

type ResetPasswordParams struct {
	Token    string
	Password string
	Meta     model.RequestMeta
}

type ChangePasswordParams struct {
	AccountID       uuid.UUID
	CurrentPassword string
	NewPassword     string
	Meta            model.RequestMeta
}

type LogoutParams struct {
	AccountID uuid.UUID
	Meta      model.RequestMeta
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account, fires the verification email in the
// background and signs the new account in. A failed email send never fails
// the registration.
func (a *Auth) Register(ctx context.Context, params RegisterParams) (model.Account, string, error) {
	email := normalizeEmail(params.Email)

	a.logger.Debug("Auth service: registering account",
		"email", email)

	role := params.Role
	if role == "" {
		role = model.RoleStudent
	}
	// Admin accounts are provisioned by other admins, never self-registered.
	if !role.Valid() || role == model.RoleAdmin {
		return model.Account{}, "", model.ErrInvalidRole
	}

	existing, err := a.accounts.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get account by email",
			"email", email,
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to get account by email: %w", err)
	}
	if existing.ID != uuid.Nil {
		a.logger.Info("Auth service: account already exists",
			"email", email)
		return model.Account{}, "", model.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.cfg.BcryptCost)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	verifyToken := uuid.NewString()
	now := time.Now()
	account := model.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Role:         role,
		Active:       true,
		VerifyToken:  &verifyToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saved, err := a.accounts.Create(ctx, account)
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.Account{}, "", model.ErrEmailTaken
		}
		a.logger.Error("Auth service: failed to create account",
			"email", email,
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to create account: %w", err)
	}

	a.sendMailAsync(saved.Email, model.MailVerification, map[string]string{
		"first_name": saved.FirstName,
		"token":      verifyToken,
	})

	sessionToken, err := a.tokens.Issue(saved.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue session token",
			"account_id", saved.ID.String(),
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	event := newEvent(model.ActionRegister, model.SeverityLow, model.OutcomeSuccess, params.Meta)
	event.ActorID = &saved.ID
	event.ActorEmail = saved.Email
	event.Resource = "account"
	event.ResourceID = resourceID(saved.ID)
	event.Detail = map[string]any{"role": string(saved.Role)}
	if err := a.audit.Record(ctx, event); err != nil {
		return model.Account{}, "", err
	}

	a.logger.Info("Auth service: account registered",
		"email", saved.Email,
		"account_id", saved.ID.String())

	return saved, sessionToken, nil
}

// Login authenticates an account. The lockout window is checked before the
// password so a locked account is refused even with correct credentials, and
// the attempt that arms the lockout still reports invalid credentials.
func (a *Auth) Login(ctx context.Context, params LoginParams) (model.Account, string, error) {
	email := normalizeEmail(params.Email)

	a.logger.Debug("Auth service: logging account in",
		"email", email)

	account, err := a.accounts.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		event := newEvent(model.ActionLogin, model.SeverityMedium, model.OutcomeFailure, params.Meta)
		event.ActorEmail = email
		event.Detail = map[string]any{"reason": "account_not_found"}
		if err := a.audit.Record(ctx, event); err != nil {
			return model.Account{}, "", err
		}
		return model.Account{}, "", model.ErrInvalidCredentials
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get account by email",
			"email", email,
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to get account by email: %w", err)
	}

	if account.Locked(time.Now()) {
		event := a.loginFailureEvent(account, params.Meta, map[string]any{"reason": "account_locked"})
		if err := a.audit.Record(ctx, event); err != nil {
			return model.Account{}, "", err
		}
		return model.Account{}, "", model.ErrAccountLocked
	}

	if !account.Active {
		event := a.loginFailureEvent(account, params.Meta, map[string]any{"reason": "account_deactivated"})
		if err := a.audit.Record(ctx, event); err != nil {
			return model.Account{}, "", err
		}
		return model.Account{}, "", model.ErrAccountDeactivated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(params.Password)); err != nil {
		attempts, err := a.accounts.RecordLoginFailure(ctx, account.ID, a.cfg.LockoutThreshold, a.cfg.LockoutDuration)
		if err != nil {
			a.logger.Error("Auth service: failed to record login failure",
				"account_id", account.ID.String(),
				"error", err.Error())
			return model.Account{}, "", fmt.Errorf("failed to record login failure: %w", err)
		}

		event := a.loginFailureEvent(account, params.Meta, map[string]any{
			"reason":        "invalid_password",
			"failed_logins": attempts,
			"locked":        attempts >= a.cfg.LockoutThreshold,
		})
		if err := a.audit.Record(ctx, event); err != nil {
			return model.Account{}, "", err
		}

		return model.Account{}, "", model.ErrInvalidCredentials
	}

	if err := a.accounts.ResetLoginFailures(ctx, account.ID); err != nil {
		a.logger.Error("Auth service: failed to reset login failures",
			"account_id", account.ID.String(),
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to reset login failures: %w", err)
	}

	sessionToken, err := a.tokens.Issue(account.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue session token",
			"account_id", account.ID.String(),
			"error", err.Error())
		return model.Account{}, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	event := newEvent(model.ActionLogin, model.SeverityLow, model.OutcomeSuccess, params.Meta)
	event.ActorID = &account.ID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(account.ID)
	if err := a.audit.Record(ctx, event); err != nil {
		return model.Account{}, "", err
	}

	a.logger.Info("Auth service: account logged in",
		"email", account.Email,
		"account_id", account.ID.String())

	account.FailedLogins = 0
	account.LockedUntil = nil

	return account, sessionToken, nil
}

// VerifyEmail consumes a verification token. Tokens are single-use: the
// matching account is marked verified and the token cleared together.
func (a *Auth) VerifyEmail(ctx context.Context, params VerifyEmailParams) error {
	account, err := a.accounts.GetByVerifyToken(ctx, params.Token)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrTokenInvalid
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get account by verify token",
			"error", err.Error())
		return fmt.Errorf("failed to get account by verify token: %w", err)
	}

	account.EmailVerified = true
	account.VerifyToken = nil
	if _, err := a.accounts.Update(ctx, account); err != nil {
		a.logger.Error("Auth service: failed to mark account verified",
			"account_id", account.ID.String(),
			"error", err.Error())
		return fmt.Errorf("failed to mark account verified: %w", err)
	}

	event := newEvent(model.ActionEmailVerify, model.SeverityLow, model.OutcomeSuccess, params.Meta)
	event.ActorID = &account.ID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(account.ID)
	a.audit.RecordAsync(event)

	a.logger.Info("Auth service: email verified",
		"account_id", account.ID.String())

	return nil
}

// ForgotPassword issues a reset token. The reply is identical whether or not
// the email belongs to an account, but a failed email send is surfaced: the
// user has no other way to learn the reset never reached them.
func (a *Auth) ForgotPassword(ctx context.Context, params ForgotPasswordParams) error {
	email := normalizeEmail(params.Email)

	account, err := a.accounts.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.logger.Debug("Auth service: password reset requested for unknown email",
			"email", email)
		return nil
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get account by email",
			"email", email,
			"error", err.Error())
		return fmt.Errorf("failed to get account by email: %w", err)
	}

	resetToken := uuid.NewString()
	expires := time.Now().Add(a.cfg.ResetTokenTTL)
	account.ResetToken = &resetToken
	account.ResetTokenExpires = &expires
	if _, err := a.accounts.Update(ctx, account); err != nil {
		a.logger.Error("Auth service: failed to store reset token",
			"account_id", account.ID.String(),
			"error", err.Error())
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	event := newEvent(model.ActionPasswordReset, model.SeverityMedium, model.OutcomeSuccess, params.Meta)
	event.ActorID = &account.ID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(account.ID)
	event.Detail = map[string]any{"stage": "requested"}

	if err := a.mailer.Send(ctx, account.Email, model.MailPasswordReset, map[string]string{
		"first_name": account.FirstName,
		"token":      resetToken,
	}); err != nil {
		a.logger.Error("Auth service: failed to send reset email",
			"account_id", account.ID.String(),
			"error", err.Error())
		event.Outcome = model.OutcomeFailure
		event.Detail["error"] = "email_delivery_failed"
		if err := a.audit.Record(ctx, event); err != nil {
			return err
		}
		return model.ErrEmailDelivery
	}

	if err := a.audit.Record(ctx, event); err != nil {
		return err
	}

	a.logger.Info("Auth service: password reset requested",
		"account_id", account.ID.String())

	return nil
}

// ResetPassword consumes a reset token and replaces the password. The token
// is single-use and any active lockout is lifted with the new password.
func (a *Auth) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	account, err := a.accounts.GetByResetToken(ctx, params.Token)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrTokenInvalid
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get account by reset token",
			"error", err.Error())
		return fmt.Errorf("failed to get account by reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), a.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.accounts.UpdatePassword(ctx, account.ID, string(hash)); err != nil {
		a.logger.Error("Auth service: failed to update password",
			"account_id", account.ID.String(),
			"error", err.Error())
		return fmt.Errorf("failed to update password: %w", err)
	}

	a.sendMailAsync(account.Email, model.MailPasswordChanged, map[string]string{
		"first_name": account.FirstName,
	})

	event := newEvent(model.ActionPasswordReset, model.SeverityMedium, model.OutcomeSuccess, params.Meta)
	event.ActorID = &account.ID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(account.ID)
	event.Detail = map[string]any{"stage": "completed"}
	if err := a.audit.Record(ctx, event); err != nil {
		return err
	}

	a.logger.Info("Auth service: password reset completed",
		"account_id", account.ID.String())

	return nil
}

// ChangePassword replaces the password of an authenticated account after
// re-checking the current one.
func (a *Auth) ChangePassword(ctx context.Context, params ChangePasswordParams) error {
	account, err := a.accounts.GetByID(ctx, params.AccountID)
	if err != nil {
		a.logger.Error("Auth service: failed to get account by id",
			"account_id", params.AccountID.String(),
			"error", err.Error())
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotFound
		}
		return fmt.Errorf("failed to get account by id: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(params.CurrentPassword)); err != nil {
		event := newEvent(model.ActionPasswordReset, model.SeverityMedium, model.OutcomeFailure, params.Meta)
		event.ActorID = &account.ID
		event.ActorEmail = account.Email
		event.Resource = "account"
		event.ResourceID = resourceID(account.ID)
		event.Detail = map[string]any{"stage": "changed", "reason": "invalid_current_password"}
		if err := a.audit.Record(ctx, event); err != nil {
			return err
		}
		return model.ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), a.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := a.accounts.UpdatePassword(ctx, account.ID, string(hash)); err != nil {
		a.logger.Error("Auth service: failed to update password",
			"account_id", account.ID.String(),
			"error", err.Error())
		return fmt.Errorf("failed to update password: %w", err)
	}

	a.sendMailAsync(account.Email, model.MailPasswordChanged, map[string]string{
		"first_name": account.FirstName,
	})

	event := newEvent(model.ActionPasswordReset, model.SeverityMedium, model.OutcomeSuccess, params.Meta)
	event.ActorID = &account.ID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(account.ID)
	event.Detail = map[string]any{"stage": "changed"}
	if err := a.audit.Record(ctx, event); err != nil {
		return err
	}

	a.logger.Info("Auth service: password changed",
		"account_id", account.ID.String())

	return nil
}

// Logout records the logout. Sessions are stateless, so the token simply
// ages out by its own expiry.
func (a *Auth) Logout(ctx context.Context, params LogoutParams) error {
	account, err := a.accounts.GetByID(ctx, params.AccountID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to get account by id: %w", err)
	}

	event := newEvent(model.ActionLogout, model.SeverityLow, model.OutcomeSuccess, params.Meta)
	event.ActorID = &params.AccountID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(params.AccountID)
	a.audit.RecordAsync(event)

	a.logger.Debug("Auth service: account logged out",
		"account_id", params.AccountID.String())

	return nil
}

func (a *Auth) loginFailureEvent(account model.Account, meta model.RequestMeta, detail map[string]any) model.AuditEvent {
	event := newEvent(model.ActionLogin, model.SeverityMedium, model.OutcomeFailure, meta)
	event.ActorID = &account.ID
	event.ActorEmail = account.Email
	event.Resource = "account"
	event.ResourceID = resourceID(account.ID)
	event.Detail = detail
	return event
}

func (a *Auth) sendMailAsync(to string, template model.MailTemplate, data map[string]string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		if err := a.mailer.Send(ctx, to, template, data); err != nil {
			a.logger.Error("Auth service: failed to send email",
				"template", string(template),
				"error", err.Error())
		}
	}()
}
