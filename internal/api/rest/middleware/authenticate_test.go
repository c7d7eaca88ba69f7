package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	restctx "github.com/classhub/classhub-server/internal/api/rest/context"
	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/mocks"
	"github.com/classhub/classhub-server/internal/model"
	"github.com/classhub/classhub-server/internal/testutil"
)

func TestAuthenticate_Handle(t *testing.T) {
	t.Parallel()

	accountID := uuid.New()
	lockedUntil := time.Now().Add(time.Hour)

	activeAccount := model.Account{ID: accountID, Email: "user@example.com", Role: model.RoleStudent, Active: true}
	lockedAccount := model.Account{ID: accountID, Email: "user@example.com", Role: model.RoleStudent, Active: true, LockedUntil: &lockedUntil}
	deactivatedAccount := model.Account{ID: accountID, Email: "user@example.com", Role: model.RoleStudent, Active: false}

	tests := []struct {
		name       string
		authHeader string
		verifyErr  error
		account    model.Account
		accountErr error
		wantStatus int
		wantCode   string
		wantNext   bool
	}{
		{
			name:       "missing authorization header",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:       "expired token",
			authHeader: "Bearer expired",
			verifyErr:  model.ErrTokenExpired,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TOKEN_EXPIRED",
		},
		{
			name:       "invalid token",
			authHeader: "Bearer garbage",
			verifyErr:  model.ErrTokenInvalid,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:       "account no longer exists",
			authHeader: "Bearer token",
			accountErr: model.ErrNotFound,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:       "account lookup failure",
			authHeader: "Bearer token",
			accountErr: errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
		{
			name:       "deactivated account with valid token",
			authHeader: "Bearer token",
			account:    deactivatedAccount,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "ACCOUNT_DEACTIVATED",
		},
		{
			name:       "locked account with valid token",
			authHeader: "Bearer token",
			account:    lockedAccount,
			wantStatus: http.StatusLocked,
			wantCode:   "ACCOUNT_LOCKED",
		},
		{
			name:       "valid session",
			authHeader: "Bearer token",
			account:    activeAccount,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokens := mocks.NewTokenManager(t)
			accounts := mocks.NewAccountStore(t)

			if tt.authHeader != "" {
				tokens.On("Verify", mock.AnythingOfType("string")).Return(accountID, tt.verifyErr)
			}
			if tt.authHeader != "" && tt.verifyErr == nil {
				accounts.On("GetByID", mock.Anything, accountID).Return(tt.account, tt.accountErr)
			}

			cm := restctx.NewManager()
			m := NewAuthenticate(tokens, accounts, cm, testutil.MakeNoopLogger())

			var sawPrincipal *model.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if p, ok := cm.GetPrincipalFromContext(r.Context()); ok {
					sawPrincipal = &p
				}
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			m.Handle(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantNext {
				require.NotNil(t, sawPrincipal)
				assert.Equal(t, accountID, sawPrincipal.ID)
				assert.Equal(t, activeAccount.Email, sawPrincipal.Email)
				assert.Equal(t, model.RoleStudent, sawPrincipal.Role)
			} else {
				assert.Nil(t, sawPrincipal)
				var body respond.ErrorBody
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantCode, body.Code)
			}
		})
	}
}
