package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restctx "github.com/classhub/classhub-server/internal/api/rest/context"
	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/model"
	"github.com/classhub/classhub-server/internal/service"
	"github.com/classhub/classhub-server/internal/testutil"
)

type authServiceStub struct {
	register       func(ctx context.Context, params service.RegisterParams) (model.Account, string, error)
	login          func(ctx context.Context, params service.LoginParams) (model.Account, string, error)
	logout         func(ctx context.Context, params service.LogoutParams) error
	verifyEmail    func(ctx context.Context, params service.VerifyEmailParams) error
	forgotPassword func(ctx context.Context, params service.ForgotPasswordParams) error
	resetPassword  func(ctx context.Context, params service.ResetPasswordParams) error
	changePassword func(ctx context.Context, params service.ChangePasswordParams) error
}

func (s *authServiceStub) Register(ctx context.Context, params service.RegisterParams) (model.Account, string, error) {
	return s.register(ctx, params)
}

func (s *authServiceStub) Login(ctx context.Context, params service.LoginParams) (model.Account, string, error) {
	return s.login(ctx, params)
}

func (s *authServiceStub) Logout(ctx context.Context, params service.LogoutParams) error {
	return s.logout(ctx, params)
}

func (s *authServiceStub) VerifyEmail(ctx context.Context, params service.VerifyEmailParams) error {
	return s.verifyEmail(ctx, params)
}

func (s *authServiceStub) ForgotPassword(ctx context.Context, params service.ForgotPasswordParams) error {
	return s.forgotPassword(ctx, params)
}

func (s *authServiceStub) ResetPassword(ctx context.Context, params service.ResetPasswordParams) error {
	return s.resetPassword(ctx, params)
}

func (s *authServiceStub) ChangePassword(ctx context.Context, params service.ChangePasswordParams) error {
	return s.changePassword(ctx, params)
}

type accountGetterStub struct {
	get func(ctx context.Context, id uuid.UUID) (model.Account, error)
}

func (s *accountGetterStub) Get(ctx context.Context, id uuid.UUID) (model.Account, error) {
	return s.get(ctx, id)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	return httptest.NewRequest(method, target, bytes.NewReader(buf))
}

func withPrincipal(req *http.Request, cm model.ContextManager, principal model.Principal) *http.Request {
	return req.WithContext(cm.SetPrincipalToContext(req.Context(), principal))
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()

	var body respond.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()

	account := model.Account{
		ID:        uuid.New(),
		Email:     "new@example.com",
		FirstName: "New",
		LastName:  "Student",
		Role:      model.RoleStudent,
		Active:    true,
	}

	var got service.RegisterParams
	svc := &authServiceStub{
		register: func(_ context.Context, params service.RegisterParams) (model.Account, string, error) {
			got = params
			return account, "session-token", nil
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "new@example.com",
		"password":  "long-enough-pass",
		"firstName": "New",
		"lastName":  "Student",
	})
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, model.Role(""), got.Role)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Email           string `json:"email"`
			IsEmailVerified bool   `json:"isEmailVerified"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "session-token", resp.Token)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.False(t, resp.User.IsEmailVerified)
}

func TestAuth_Register_Validation(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		register: func(_ context.Context, _ service.RegisterParams) (model.Account, string, error) {
			t.Fatal("register must not be called for an invalid body")
			return model.Account{}, "", nil
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "not-an-email",
		"password":  "short",
		"firstName": "New",
		"lastName":  "Student",
	})
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeErrorBody(t, rec).Code)
}

func TestAuth_Register_EmailTaken(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		register: func(_ context.Context, _ service.RegisterParams) (model.Account, string, error) {
			return model.Account{}, "", model.ErrEmailTaken
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/register", map[string]string{
		"email":     "dup@example.com",
		"password":  "long-enough-pass",
		"firstName": "New",
		"lastName":  "Student",
	})
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMAIL_TAKEN", decodeErrorBody(t, rec).Code)
}

func TestAuth_Login(t *testing.T) {
	t.Parallel()

	account := model.Account{ID: uuid.New(), Email: "user@example.com", Role: model.RoleStudent, Active: true}
	svc := &authServiceStub{
		login: func(_ context.Context, params service.LoginParams) (model.Account, string, error) {
			assert.Equal(t, "user@example.com", params.Email)
			return account, "session-token", nil
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "user@example.com",
		"password": "whatever",
	})
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "session-token", resp.Token)
}

func TestAuth_Login_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "wrong credentials",
			err:        model.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "locked account",
			err:        model.ErrAccountLocked,
			wantStatus: http.StatusLocked,
			wantCode:   "ACCOUNT_LOCKED",
		},
		{
			name:       "deactivated account",
			err:        model.ErrAccountDeactivated,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "ACCOUNT_DEACTIVATED",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &authServiceStub{
				login: func(_ context.Context, _ service.LoginParams) (model.Account, string, error) {
					return model.Account{}, "", tt.err
				},
			}
			h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

			req := jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
				"email":    "user@example.com",
				"password": "whatever",
			})
			rec := httptest.NewRecorder()

			h.Login(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeErrorBody(t, rec).Code)
		})
	}
}

func TestAuth_VerifyEmail(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		verifyEmail: func(_ context.Context, params service.VerifyEmailParams) error {
			assert.Equal(t, "verify-token", params.Token)
			return nil
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/verify-email", map[string]string{"token": "verify-token"})
	rec := httptest.NewRecorder()

	h.VerifyEmail(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_VerifyEmail_UsedToken(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		verifyEmail: func(_ context.Context, _ service.VerifyEmailParams) error {
			return model.ErrTokenInvalid
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/verify-email", map[string]string{"token": "used"})
	rec := httptest.NewRecorder()

	h.VerifyEmail(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeErrorBody(t, rec).Code)
}

func TestAuth_ForgotPassword(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		forgotPassword: func(_ context.Context, _ service.ForgotPasswordParams) error { return nil },
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "who@example.com"})
	rec := httptest.NewRecorder()

	h.ForgotPassword(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// The body must not reveal whether the address is registered.
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "if the email is registered, a reset link has been sent", resp.Message)
}

func TestAuth_ForgotPassword_DeliveryFailure(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		forgotPassword: func(_ context.Context, _ service.ForgotPasswordParams) error {
			return model.ErrEmailDelivery
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "who@example.com"})
	rec := httptest.NewRecorder()

	h.ForgotPassword(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "EMAIL_DELIVERY_FAILED", decodeErrorBody(t, rec).Code)
}

func TestAuth_ResetPassword(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		resetPassword: func(_ context.Context, params service.ResetPasswordParams) error {
			assert.Equal(t, "reset-token", params.Token)
			return nil
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"token":    "reset-token",
		"password": "long-enough-pass",
	})
	rec := httptest.NewRecorder()

	h.ResetPassword(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_ResetPassword_Expired(t *testing.T) {
	t.Parallel()

	svc := &authServiceStub{
		resetPassword: func(_ context.Context, _ service.ResetPasswordParams) error {
			return model.ErrTokenExpired
		},
	}
	h := NewAuth(svc, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/reset-password", map[string]string{
		"token":    "stale",
		"password": "long-enough-pass",
	})
	rec := httptest.NewRecorder()

	h.ResetPassword(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeErrorBody(t, rec).Code)
}

func TestAuth_ChangePassword(t *testing.T) {
	t.Parallel()

	cm := restctx.NewManager()
	principal := model.Principal{ID: uuid.New(), Email: "user@example.com", Role: model.RoleStudent}

	var got service.ChangePasswordParams
	svc := &authServiceStub{
		changePassword: func(_ context.Context, params service.ChangePasswordParams) error {
			got = params
			return nil
		},
	}
	h := NewAuth(svc, nil, cm, testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/change-password", map[string]string{
		"currentPassword": "old-password",
		"password":        "new-long-password",
	})
	rec := httptest.NewRecorder()

	h.ChangePassword(rec, withPrincipal(req, cm, principal))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, principal.ID, got.AccountID)
	assert.Equal(t, "old-password", got.CurrentPassword)
}

func TestAuth_ChangePassword_WrongCurrent(t *testing.T) {
	t.Parallel()

	cm := restctx.NewManager()
	svc := &authServiceStub{
		changePassword: func(_ context.Context, _ service.ChangePasswordParams) error {
			return model.ErrInvalidPassword
		},
	}
	h := NewAuth(svc, nil, cm, testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/change-password", map[string]string{
		"currentPassword": "wrong",
		"password":        "new-long-password",
	})
	rec := httptest.NewRecorder()

	h.ChangePassword(rec, withPrincipal(req, cm, model.Principal{ID: uuid.New(), Role: model.RoleStudent}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PASSWORD", decodeErrorBody(t, rec).Code)
}

func TestAuth_ChangePassword_NoPrincipal(t *testing.T) {
	t.Parallel()

	h := NewAuth(&authServiceStub{}, nil, restctx.NewManager(), testutil.MakeNoopLogger())

	req := jsonRequest(t, http.MethodPost, "/auth/change-password", map[string]string{
		"currentPassword": "old",
		"password":        "new-long-password",
	})
	rec := httptest.NewRecorder()

	h.ChangePassword(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeErrorBody(t, rec).Code)
}

func TestAuth_Logout(t *testing.T) {
	t.Parallel()

	cm := restctx.NewManager()
	principal := model.Principal{ID: uuid.New(), Email: "user@example.com", Role: model.RoleStudent}

	var got service.LogoutParams
	svc := &authServiceStub{
		logout: func(_ context.Context, params service.LogoutParams) error {
			got = params
			return nil
		},
	}
	h := NewAuth(svc, nil, cm, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	h.Logout(rec, withPrincipal(req, cm, principal))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, principal.ID, got.AccountID)
}

func TestAuth_Me(t *testing.T) {
	t.Parallel()

	cm := restctx.NewManager()
	account := model.Account{ID: uuid.New(), Email: "user@example.com", Role: model.RoleInstructor, Active: true, EmailVerified: true}

	accounts := &accountGetterStub{
		get: func(_ context.Context, id uuid.UUID) (model.Account, error) {
			assert.Equal(t, account.ID, id)
			return account, nil
		},
	}
	h := NewAuth(&authServiceStub{}, accounts, cm, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()

	h.Me(rec, withPrincipal(req, cm, model.Principal{ID: account.ID, Email: account.Email, Role: account.Role}))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "user@example.com", resp.Email)
	assert.Equal(t, "instructor", resp.Role)
}

func TestAuth_Me_Gone(t *testing.T) {
	t.Parallel()

	cm := restctx.NewManager()
	accounts := &accountGetterStub{
		get: func(_ context.Context, _ uuid.UUID) (model.Account, error) {
			return model.Account{}, model.ErrNotFound
		},
	}
	h := NewAuth(&authServiceStub{}, accounts, cm, testutil.MakeNoopLogger())

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()

	h.Me(rec, withPrincipal(req, cm, model.Principal{ID: uuid.New(), Role: model.RoleStudent}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeErrorBody(t, rec).Code)
}
