package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/classhub/classhub-server/internal/api/rest/request"
	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// AuditRecorder records authorization denials before the response goes out.
type AuditRecorder interface {
	Record(ctx context.Context, event model.AuditEvent) error
}

// Authorize guards routes by role, permission and ownership. Every denial
// produces exactly one UNAUTHORIZED_ACCESS audit event.
type Authorize struct {
	audit          AuditRecorder
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthorize creates a new Authorize middleware instance.
func NewAuthorize(audit AuditRecorder, contextManager model.ContextManager, logger *logger.Logger) *Authorize {
	return &Authorize{
		audit:          audit,
		contextManager: contextManager,
		logger:         logger,
	}
}

// RequireRole allows the request only for the listed roles.
func (m *Authorize) RequireRole(roles ...model.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.contextManager.GetPrincipalFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.deny(w, r, principal, requiredRoles(roles))
		})
	}
}

// RequirePermission allows the request only when the principal's role grants
// the permission.
func (m *Authorize) RequirePermission(permission model.Permission) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.contextManager.GetPrincipalFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if !principal.Role.Can(permission) {
				m.deny(w, r, principal, string(permission))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SelfOr allows access when the id path variable matches the principal,
// otherwise requires the permission. This is the ownership check: accounts
// always reach their own resources, privileged roles reach everyone's.
func (m *Authorize) SelfOr(permission model.Permission) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := m.contextManager.GetPrincipalFromContext(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}

			if id, err := uuid.Parse(mux.Vars(r)["id"]); err == nil && id == principal.ID {
				next.ServeHTTP(w, r)
				return
			}

			if !principal.Role.Can(permission) {
				m.deny(w, r, principal, string(permission))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// deny records the denial synchronously, then answers 403. A failed audit
// write turns the denial into a 500: the request is refused either way, but
// an unlogged denial is never acceptable.
func (m *Authorize) deny(w http.ResponseWriter, r *http.Request, principal model.Principal, required string) {
	meta := request.Meta(r)
	event := model.AuditEvent{
		ID:         uuid.New(),
		ActorID:    &principal.ID,
		ActorEmail: principal.Email,
		Action:     model.ActionUnauthorizedAccess,
		Resource:   "endpoint",
		Detail: map[string]any{
			"endpoint": r.URL.Path,
			"method":   r.Method,
			"required": required,
			"role":     string(principal.Role),
		},
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Severity:  model.SeverityHigh,
		Outcome:   model.OutcomeFailure,
		CreatedAt: time.Now(),
	}
	if err := m.audit.Record(r.Context(), event); err != nil {
		m.logger.Error("Authorize middleware: failed to record denial",
			"account_id", principal.ID.String(),
			"endpoint", r.URL.Path,
			"error", err.Error())
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	m.logger.Info("Authorize middleware: access denied",
		"account_id", principal.ID.String(),
		"role", string(principal.Role),
		"endpoint", r.URL.Path,
		"required", required)

	respond.Error(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "insufficient permissions")
}

func requiredRoles(roles []model.Role) string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	return "role:" + strings.Join(names, "|")
}
