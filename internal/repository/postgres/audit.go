package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/model"
)

var _ model.AuditStore = (*AuditRepository)(nil)

const auditColumns = `id, actor_id, actor_email, action, resource, resource_id, detail, ip, user_agent,
	severity, outcome, created_at`

type AuditRepository struct {
	db *Connection
}

func NewAuditRepository(db *Connection) *AuditRepository {
	return &AuditRepository{
		db: db,
	}
}

func scanAuditEvent(row rowScanner) (model.AuditEvent, error) {
	var e model.AuditEvent
	var detail []byte
	err := row.Scan(
		&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.Resource, &e.ResourceID,
		&detail, &e.IP, &e.UserAgent, &e.Severity, &e.Outcome, &e.CreatedAt,
	)
	if err != nil {
		return model.AuditEvent{}, err
	}
	if len(detail) > 0 {
		if err := json.Unmarshal(detail, &e.Detail); err != nil {
			return model.AuditEvent{}, fmt.Errorf("failed to decode event detail: %w", err)
		}
	}
	return e, nil
}

// Create appends an event to the log. The contract has no update or delete
// counterpart.
func (r *AuditRepository) Create(ctx context.Context, event model.AuditEvent) (model.AuditEvent, error) {
	query := `INSERT INTO audit_events (id, actor_id, actor_email, action, resource, resource_id,
				detail, ip, user_agent, severity, outcome, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var detail []byte
	if event.Detail != nil {
		encoded, err := json.Marshal(event.Detail)
		if err != nil {
			return model.AuditEvent{}, fmt.Errorf("failed to encode event detail: %w", err)
		}
		detail = encoded
	}

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.ActorID, event.ActorEmail, event.Action, event.Resource, event.ResourceID,
		detail, event.IP, event.UserAgent, event.Severity, event.Outcome, event.CreatedAt,
	)
	if err != nil {
		return model.AuditEvent{}, fmt.Errorf("failed to create audit event: %w", err)
	}

	return event, nil
}

func (r *AuditRepository) List(ctx context.Context, filter model.AuditFilter, page model.Page) ([]model.AuditEvent, int, error) {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	listQuery := builder.Select(auditColumns).From("audit_events")
	countQuery := builder.Select("COUNT(*)").From("audit_events")

	apply := func(q sq.SelectBuilder) sq.SelectBuilder {
		if filter.Action != "" {
			q = q.Where(sq.Eq{"action": filter.Action})
		}
		if filter.Resource != "" {
			q = q.Where(sq.Eq{"resource": filter.Resource})
		}
		if filter.Severity != "" {
			q = q.Where(sq.Eq{"severity": filter.Severity})
		}
		if filter.Outcome != "" {
			q = q.Where(sq.Eq{"outcome": filter.Outcome})
		}
		if filter.ActorID != nil {
			q = q.Where(sq.Eq{"actor_id": *filter.ActorID})
		}
		if filter.From != nil {
			q = q.Where(sq.GtOrEq{"created_at": *filter.From})
		}
		if filter.To != nil {
			q = q.Where(sq.LtOrEq{"created_at": *filter.To})
		}
		return q
	}

	query, args, err := apply(listQuery).
		OrderBy("created_at DESC").
		Limit(uint64(page.Limit())).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build audit list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events := make([]model.AuditEvent, 0)
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate audit event rows: %w", err)
	}

	query, args, err = apply(countQuery).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build audit count query: %w", err)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return events, total, nil
}

func (r *AuditRepository) ListByActor(ctx context.Context, actorID uuid.UUID, page model.Page) ([]model.AuditEvent, int, error) {
	filter := model.AuditFilter{ActorID: &actorID}
	return r.List(ctx, filter, page)
}

func (r *AuditRepository) CountByAction(ctx context.Context, since time.Time) (map[model.AuditAction]int, error) {
	query := `SELECT action, COUNT(*) FROM audit_events WHERE created_at >= $1 GROUP BY action`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit events by action: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AuditAction]int)
	for rows.Next() {
		var action model.AuditAction
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count row: %w", err)
		}
		counts[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action count rows: %w", err)
	}

	return counts, nil
}
