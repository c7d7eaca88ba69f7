package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/classhub/classhub-server/internal/api/rest/handler"
	"github.com/classhub/classhub-server/internal/api/rest/middleware"
	"github.com/classhub/classhub-server/internal/config"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
	"github.com/classhub/classhub-server/internal/service"
)

// Router wires handlers and middleware into the HTTP route tree. Public auth
// endpoints are rate limited; everything else sits behind authentication,
// with role and permission guards per route.
type Router struct {
	authService    *service.Auth
	usersService   *service.Users
	auditService   *service.Audit
	accounts       model.AccountStore
	tokens         model.TokenManager
	db             handler.Pinger
	contextManager model.ContextManager
	rate           config.Rate
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	authService *service.Auth,
	usersService *service.Users,
	auditService *service.Audit,
	accounts model.AccountStore,
	tokens model.TokenManager,
	db handler.Pinger,
	contextManager model.ContextManager,
	rate config.Rate,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		usersService:   usersService,
		auditService:   auditService,
		accounts:       accounts,
		tokens:         tokens,
		db:             db,
		contextManager: contextManager,
		rate:           rate,
		logger:         logger,
	}
}

// Register builds the route tree with all middleware attached.
func (r *Router) Register() *mux.Router {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokens, r.accounts, r.contextManager, r.logger)
	authorize := middleware.NewAuthorize(r.auditService, r.contextManager, r.logger)
	rateLimit := middleware.NewRateLimit(r.rate.AuthPerSecond)

	authHandler := handler.NewAuth(r.authService, r.usersService, r.contextManager, r.logger)
	usersHandler := handler.NewUsers(r.usersService, r.auditService, r.contextManager, r.logger)
	auditHandler := handler.NewAudit(r.auditService, r.contextManager, r.logger)
	healthHandler := handler.NewHealth(r.db, r.logger)

	root := mux.NewRouter()
	root.StrictSlash(true)
	root.Use(logging.Handle)

	root.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	public := root.PathPrefix("/auth").Subrouter()
	public.Use(rateLimit.Handle)
	public.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	public.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/verify-email", authHandler.VerifyEmail).Methods(http.MethodPost)
	public.HandleFunc("/forgot-password", authHandler.ForgotPassword).Methods(http.MethodPost)
	public.HandleFunc("/reset-password", authHandler.ResetPassword).Methods(http.MethodPost)

	session := root.PathPrefix("/auth").Subrouter()
	session.Use(authenticate.Handle)
	session.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	session.HandleFunc("/change-password", authHandler.ChangePassword).Methods(http.MethodPost)
	session.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)

	users := root.PathPrefix("/users").Subrouter()
	users.Use(authenticate.Handle)
	users.HandleFunc("/me/activity", usersHandler.Activity).Methods(http.MethodGet)
	users.Handle("", authorize.RequirePermission(model.PermissionUserRead)(
		http.HandlerFunc(usersHandler.List))).Methods(http.MethodGet)
	users.Handle("/{id}", authorize.SelfOr(model.PermissionUserRead)(
		http.HandlerFunc(usersHandler.Get))).Methods(http.MethodGet)
	users.Handle("/{id}", authorize.SelfOr(model.PermissionUserWrite)(
		http.HandlerFunc(usersHandler.Update))).Methods(http.MethodPatch)
	users.Handle("/{id}/role", authorize.RequirePermission(model.PermissionRoleAssign)(
		http.HandlerFunc(usersHandler.ChangeRole))).Methods(http.MethodPut)
	users.Handle("/{id}", authorize.RequirePermission(model.PermissionUserDelete)(
		http.HandlerFunc(usersHandler.Deactivate))).Methods(http.MethodDelete)
	users.Handle("/{id}/reactivate", authorize.RequirePermission(model.PermissionUserDelete)(
		http.HandlerFunc(usersHandler.Reactivate))).Methods(http.MethodPost)

	admin := root.PathPrefix("/admin").Subrouter()
	admin.Use(authenticate.Handle)
	admin.Use(authorize.RequireRole(model.RoleAdmin))
	admin.Handle("/audit", authorize.RequirePermission(model.PermissionAuditRead)(
		http.HandlerFunc(auditHandler.List))).Methods(http.MethodGet)
	admin.Handle("/audit/users/{id}", authorize.RequirePermission(model.PermissionAuditRead)(
		http.HandlerFunc(auditHandler.ListByActor))).Methods(http.MethodGet)
	admin.Handle("/audit/export", authorize.RequirePermission(model.PermissionAuditRead)(
		http.HandlerFunc(auditHandler.Export))).Methods(http.MethodGet)
	admin.Handle("/stats", authorize.RequirePermission(model.PermissionStatsRead)(
		http.HandlerFunc(usersHandler.Stats))).Methods(http.MethodGet)

	return root
}
