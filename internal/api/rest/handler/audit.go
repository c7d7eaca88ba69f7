package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/api/rest/request"
	"github.com/classhub/classhub-server/internal/api/rest/respond"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// AuditService defines audit log read operations plus the synchronous
// recorder used to log the export itself.
type AuditService interface {
	Record(ctx context.Context, event model.AuditEvent) error
	List(ctx context.Context, filter model.AuditFilter, page model.Page) ([]model.AuditEvent, int, error)
	ListByActor(ctx context.Context, actorID uuid.UUID, page model.Page) ([]model.AuditEvent, int, error)
}

// Audit handles the /admin/audit endpoints.
type Audit struct {
	auditService   AuditService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAudit creates a new Audit handler.
func NewAudit(auditService AuditService, contextManager model.ContextManager, logger *logger.Logger) *Audit {
	return &Audit{
		auditService:   auditService,
		contextManager: contextManager,
		logger:         logger,
	}
}

func parseAuditFilter(r *http.Request) model.AuditFilter {
	query := r.URL.Query()
	filter := model.AuditFilter{
		Action:   model.AuditAction(query.Get("action")),
		Resource: query.Get("resource"),
		Severity: model.AuditSeverity(query.Get("severity")),
		Outcome:  model.AuditOutcome(query.Get("outcome")),
	}
	if raw := query.Get("actor_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.ActorID = &id
		}
	}
	if raw := query.Get("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &ts
		}
	}
	if raw := query.Get("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &ts
		}
	}

	return filter
}

// List returns a filtered page of audit events.
func (h *Audit) List(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	events, total, err := h.auditService.List(r.Context(), parseAuditFilter(r), page)
	if err != nil {
		h.logger.Error("Audit handler: list failed",
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

// ListByActor returns the audit trail of a single account.
func (h *Audit) ListByActor(w http.ResponseWriter, r *http.Request) {
	actorID, err := pathID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	page := parsePage(r)
	events, total, err := h.auditService.ListByActor(r.Context(), actorID, page)
	if err != nil {
		h.logger.Error("Audit handler: list by actor failed",
			"actor_id", actorID.String(),
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

// Export streams the filtered audit log as JSON lines. The export itself is
// recorded as a DATA_EXPORT event before the first byte goes out, so a
// failed recording aborts the export.
func (h *Audit) Export(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipalFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	filter := parseAuditFilter(r)
	meta := request.Meta(r)

	event := model.AuditEvent{
		ID:         uuid.New(),
		ActorID:    &principal.ID,
		ActorEmail: principal.Email,
		Action:     model.ActionDataExport,
		Resource:   "audit",
		Detail:     map[string]any{"format": "jsonl"},
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Severity:   model.SeverityMedium,
		Outcome:    model.OutcomeSuccess,
		CreatedAt:  time.Now(),
	}
	if err := h.auditService.Record(r.Context(), event); err != nil {
		h.logger.Error("Audit handler: failed to record export",
			"actor_id", principal.ID.String(),
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Audit handler: exporting audit log",
		"actor_id", principal.ID.String())

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-export.jsonl"`)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	encoder := json.NewEncoder(w)
	page := model.Page{Number: 1, Size: model.MaxPageSize}
	for {
		events, _, err := h.auditService.List(r.Context(), filter, page)
		if err != nil {
			// The stream has started; all we can do is stop it.
			h.logger.Error("Audit handler: export aborted",
				"page", page.Number,
				"error", err.Error())
			return
		}

		for _, event := range events {
			if err := encoder.Encode(toAuditEventResponse(event)); err != nil {
				return
			}
		}
		if flusher != nil {
			flusher.Flush()
		}

		if len(events) < page.Limit() {
			return
		}
		page.Number++
	}
}
