package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/api/rest/request"
	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
	"github.com/classhub/classhub-server/internal/service"
)

// UsersService defines account management operations.
type UsersService interface {
	Get(ctx context.Context, id uuid.UUID) (model.Account, error)
	List(ctx context.Context, filter model.AccountFilter, page model.Page) ([]model.Account, int, error)
	Update(ctx context.Context, params service.UpdateUserParams) (model.Account, error)
	ChangeRole(ctx context.Context, params service.ChangeRoleParams) (model.Account, error)
	Deactivate(ctx context.Context, params service.DeactivateParams) error
	Reactivate(ctx context.Context, params service.ReactivateParams) error
	Stats(ctx context.Context) (service.Stats, error)
}

// ActivityLister reads an account's own audit trail.
type ActivityLister interface {
	ListByActor(ctx context.Context, actorID uuid.UUID, page model.Page) ([]model.AuditEvent, int, error)
}

// Users handles the /users endpoints and the admin stats endpoint.
type Users struct {
	usersService   UsersService
	activity       ActivityLister
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewUsers creates a new Users handler.
func NewUsers(usersService UsersService, activity ActivityLister, contextManager model.ContextManager, logger *logger.Logger) *Users {
	return &Users{
		usersService:   usersService,
		activity:       activity,
		contextManager: contextManager,
		logger:         logger,
	}
}

type updateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type statsResponse struct {
	TotalAccounts  int            `json:"totalAccounts"`
	AccountsByRole map[string]int `json:"accountsByRole"`
	RecentActions  map[string]int `json:"recentActions"`
}

func parseAccountFilter(r *http.Request) model.AccountFilter {
	query := r.URL.Query()
	filter := model.AccountFilter{
		Role:   model.Role(query.Get("role")),
		Search: query.Get("search"),
	}
	if raw := query.Get("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}

	return filter
}

// List returns a filtered page of accounts.
func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	accounts, total, err := h.usersService.List(r.Context(), parseAccountFilter(r), page)
	if err != nil {
		h.logger.Error("Users handler: list failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	users := make([]userResponse, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, toUserResponse(account))
	}

	respond.JSON(w, http.StatusOK, userListResponse{
		Users: users,
		Meta:  listMeta{Page: page.Number, PageSize: page.Limit(), Total: total},
	})
}

// Get returns a single account.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	account, err := h.usersService.Get(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toUserResponse(account))
}

// Update applies profile changes to an account.
func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req updateUserRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Users handler: processing update request",
		"account_id", id.String(),
		"actor_id", principal.ID.String())

	account, err := h.usersService.Update(r.Context(), service.UpdateUserParams{
		AccountID: id,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Actor:     principal,
		Meta:      request.Meta(r),
	})
	if err != nil {
		h.logger.Error("Users handler: update failed",
			"account_id", id.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, toUserResponse(account))
}

// ChangeRole reassigns an account's role.
func (h *Users) ChangeRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req changeRoleRequest
	if err := decodeValid(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Users handler: processing role change request",
		"account_id", id.String(),
		"role", req.Role,
		"actor_id", principal.ID.String())

	account, err := h.usersService.ChangeRole(r.Context(), service.ChangeRoleParams{
		AccountID: id,
		Role:      model.Role(req.Role),
		Actor:     principal,
		Meta:      request.Meta(r),
	})
	if err != nil {
		h.logger.Error("Users handler: role change failed",
			"account_id", id.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Users handler: role change completed",
		"account_id", id.String(),
		"role", req.Role)

	respond.JSON(w, http.StatusOK, toUserResponse(account))
}

// Deactivate soft-deletes an account.
func (h *Users) Deactivate(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Users handler: processing deactivate request",
		"account_id", id.String(),
		"actor_id", principal.ID.String())

	if err := h.usersService.Deactivate(r.Context(), service.DeactivateParams{
		AccountID: id,
		Actor:     principal,
		Meta:      request.Meta(r),
	}); err != nil {
		h.logger.Error("Users handler: deactivate failed",
			"account_id", id.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Users handler: deactivate completed",
		"account_id", id.String(),
		"actor_id", principal.ID.String())

	respond.JSON(w, http.StatusOK, messageResponse{Message: "account deactivated"})
}

// Reactivate lifts a soft delete.
func (h *Users) Reactivate(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.usersService.Reactivate(r.Context(), service.ReactivateParams{
		AccountID: id,
		Actor:     principal,
		Meta:      request.Meta(r),
	}); err != nil {
		h.logger.Error("Users handler: reactivate failed",
			"account_id", id.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, messageResponse{Message: "account reactivated"})
}

// Activity returns the authenticated account's own audit trail.
func (h *Users) Activity(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	page := parsePage(r)
	events, total, err := h.activity.ListByActor(r.Context(), principal.ID, page)
	if err != nil {
		h.logger.Error("Users handler: activity lookup failed",
			"account_id", principal.ID.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	items := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		items = append(items, toAuditEventResponse(event))
	}

	respond.JSON(w, http.StatusOK, auditListResponse{
		Events: items,
		Meta:   listMeta{Page: page.Number, PageSize: page.Limit(), Total: total},
	})
}

// Stats returns account totals and recent action counts.
func (h *Users) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usersService.Stats(r.Context())
	if err != nil {
		h.logger.Error("Users handler: stats failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	byRole := make(map[string]int, len(stats.AccountsByRole))
	for role, count := range stats.AccountsByRole {
		byRole[string(role)] = count
	}
	actions := make(map[string]int, len(stats.RecentActions))
	for action, count := range stats.RecentActions {
		actions[string(action)] = count
	}

	respond.JSON(w, http.StatusOK, statsResponse{
		TotalAccounts:  stats.TotalAccounts,
		AccountsByRole: byRole,
		RecentActions:  actions,
	})
}
