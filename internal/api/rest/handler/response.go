package handler

import (
	"time"

	"github.com/classhub/classhub-server/internal/model"
)

type userResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Role            string     `json:"role"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toUserResponse(account model.Account) userResponse {
	return userResponse{
		ID:              account.ID.String(),
		Email:           account.Email,
		FirstName:       account.FirstName,
		LastName:        account.LastName,
		Role:            string(account.Role),
		IsActive:        account.Active,
		IsEmailVerified: account.EmailVerified,
		LastLoginAt:     account.LastLoginAt,
		CreatedAt:       account.CreatedAt,
	}
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type listMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

type userListResponse struct {
	Users []userResponse `json:"users"`
	Meta  listMeta       `json:"meta"`
}

type auditEventResponse struct {
	ID         string         `json:"id"`
	ActorID    *string        `json:"actorId,omitempty"`
	ActorEmail string         `json:"actorEmail,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource,omitempty"`
	ResourceID *string        `json:"resourceId,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Severity   string         `json:"severity"`
	Outcome    string         `json:"outcome"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func toAuditEventResponse(event model.AuditEvent) auditEventResponse {
	resp := auditEventResponse{
		ID:         event.ID.String(),
		ActorEmail: event.ActorEmail,
		Action:     string(event.Action),
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Detail:     event.Detail,
		IP:         event.IP,
		UserAgent:  event.UserAgent,
		Severity:   string(event.Severity),
		Outcome:    string(event.Outcome),
		CreatedAt:  event.CreatedAt,
	}
	if event.ActorID != nil {
		actorID := event.ActorID.String()
		resp.ActorID = &actorID
	}

	return resp
}

type auditListResponse struct {
	Events []auditEventResponse `json:"events"`
	Meta   listMeta             `json:"meta"`
}
