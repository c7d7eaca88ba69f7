package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/api/rest/request"
	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
	"github.com/classhub/classhub-server/internal/service"
)

// AuthService defines registration, login and credential lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) (model.Account, string, error)
	Login(ctx context.Context, params service.LoginParams) (model.Account, string, error)
	Logout(ctx context.Context, params service.LogoutParams) error
	VerifyEmail(ctx context.Context, params service.VerifyEmailParams) error
	ForgotPassword(ctx context.Context, params service.ForgotPasswordParams) error
	ResetPassword(ctx context.Context, params service.ResetPasswordParams) error
	ChangePassword(ctx context.Context, params service.ChangePasswordParams) error
}

// AccountGetter resolves the current account for profile responses.
type AccountGetter interface {
	Get(ctx context.Context, id uuid.UUID) (model.Account, error)
}

// Auth handles the /auth endpoints.
type Auth struct {
	authService    AuthService
	accounts       AccountGetter
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, accounts AccountGetter, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		accounts:       accounts,
		contextManager: contextManager,
		logger:         logger,
	}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Role      string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates an account and signs it in.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Auth handler: processing register request",
		"email", req.Email)

	account, token, err := h.authService.Register(r.Context(), service.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      model.Role(req.Role),
		Meta:      request.Meta(r),
	})
	if err != nil {
		h.logger.Error("Auth handler: register failed",
			"email", req.Email,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: register completed",
		"email", account.Email,
		"account_id", account.ID.String())

	respond.JSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  toUserResponse(account),
	})
}

// Login authenticates an account and returns a session token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Auth handler: processing login request",
		"email", req.Email)

	account, token, err := h.authService.Login(r.Context(), service.LoginParams{
		Email:    req.Email,
		Password: req.Password,
		Meta:     request.Meta(r),
	})
	if err != nil {
		h.logger.Error("Auth handler: login failed",
			"email", req.Email,
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: login completed",
		"email", account.Email,
		"account_id", account.ID.String())

	respond.JSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  toUserResponse(account),
	})
}

// Logout records the logout for the authenticated account.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	if err := h.authService.Logout(r.Context(), service.LogoutParams{
		AccountID: principal.ID,
		Meta:      request.Meta(r),
	}); err != nil {
		h.logger.Error("Auth handler: logout failed",
			"account_id", principal.ID.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// VerifyEmail consumes an email verification token.
func (h *Auth) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Auth handler: processing verify email request")

	if err := h.authService.VerifyEmail(r.Context(), service.VerifyEmailParams{
		Token: req.Token,
		Meta:  request.Meta(r),
	}); err != nil {
		h.logger.Error("Auth handler: verify email failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: "email verified"})
}

// ForgotPassword requests a password reset. The response does not reveal
// whether the email is registered.
func (h *Auth) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Auth handler: processing forgot password request")

	if err := h.authService.ForgotPassword(r.Context(), service.ForgotPasswordParams{
		Email: req.Email,
		Meta:  request.Meta(r),
	}); err != nil {
		h.logger.Error("Auth handler: forgot password failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: "if the email is registered, a reset link has been sent"})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *Auth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Auth handler: processing reset password request")

	if err := h.authService.ResetPassword(r.Context(), service.ResetPasswordParams{
		Token:    req.Token,
		Password: req.Password,
		Meta:     request.Meta(r),
	}); err != nil {
		h.logger.Error("Auth handler: reset password failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: "password has been reset"})
}

// ChangePassword replaces the authenticated account's password.
func (h *Auth) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var req changePasswordRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Auth handler: processing change password request",
		"account_id", principal.ID.String())

	if err := h.authService.ChangePassword(r.Context(), service.ChangePasswordParams{
		AccountID:       principal.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.Password,
		Meta:            request.Meta(r),
	}); err != nil {
		h.logger.Error("Auth handler: change password failed",
			"account_id", principal.ID.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}

// Me returns the authenticated account's profile.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	account, err := h.accounts.Get(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("Auth handler: failed to load profile",
			"account_id", principal.ID.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toUserResponse(account))
}
