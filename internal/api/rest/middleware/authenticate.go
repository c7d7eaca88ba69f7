package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// TokenVerifier resolves account IDs from session tokens.
type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

// AccountSource loads accounts for the per-request account check.
type AccountSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
}

// Authenticate validates bearer tokens and stores the principal in the
// request context. The account is re-fetched on every request so a
// deactivation or lockout takes effect immediately, not at token expiry.
type Authenticate struct {
	tokens         TokenVerifier
	accounts       AccountSource
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokens TokenVerifier, accounts AccountSource, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{
		tokens:         tokens,
		accounts:       accounts,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Handle parses the Authorization header and attaches the principal to the
// request context, rejecting the request otherwise.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authorization token required")
			return
		}

		accountID, err := m.tokens.Verify(tokenString)
		if err != nil {
			if errors.Is(err, model.ErrTokenExpired) {
				respond.Error(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "session token has expired")
				return
			}
			respond.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "session token is invalid")
			return
		}

		account, err := m.accounts.GetByID(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				respond.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "session token is invalid")
				return
			}
			m.logger.Error("Authenticate middleware: failed to load account",
				"account_id", accountID.String(),
				"error", err.Error())
			respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			return
		}

		if !account.Active {
			respond.Error(w, http.StatusUnauthorized, "ACCOUNT_DEACTIVATED", "account is deactivated")
			return
		}
		if account.Locked(time.Now()) {
			respond.Error(w, http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked after repeated failed logins")
			return
		}

		principal := model.Principal{
			ID:    account.ID,
			Email: account.Email,
			Role:  account.Role,
		}
		ctx := m.contextManager.SetPrincipalToContext(r.Context(), principal)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
