package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/model"
)

// asyncWriteTimeout bounds a single background write so a stuck database
// cannot wedge the worker forever.
const asyncWriteTimeout = 5 * time.Second

// Audit records and queries the append-only event log. Events documenting a
// security decision are written synchronously via Record before the caller
// responds; informational events go through RecordAsync, which buffers them
// and drops on overflow instead of blocking the request path.
type Audit struct {
	store  model.AuditStore
	logger *logger.Logger

	events  chan model.AuditEvent
	dropped atomic.Uint64
	wg      sync.WaitGroup
	once    sync.Once
}

func NewAudit(store model.AuditStore, logger *logger.Logger, bufferSize int) *Audit {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	a := &Audit{
		store:  store,
		logger: logger,
		events: make(chan model.AuditEvent, bufferSize),
	}

	a.wg.Add(1)
	go a.worker()

	return a
}

// Record appends an event and does not return until it is durable.
func (a *Audit) Record(ctx context.Context, event model.AuditEvent) error {
	if _, err := a.store.Create(ctx, event); err != nil {
		a.logger.Error("Audit service: failed to record event",
			"action", string(event.Action),
			"error", err.Error())
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// RecordAsync queues an informational event. A full buffer drops the event
// and bumps the drop counter.
func (a *Audit) RecordAsync(event model.AuditEvent) {
	select {
	case a.events <- event:
	default:
		a.dropped.Add(1)
		a.logger.Debug("Audit service: event buffer full, dropping event",
			"action", string(event.Action))
	}
}

func (a *Audit) worker() {
	defer a.wg.Done()

	for event := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
		if _, err := a.store.Create(ctx, event); err != nil {
			a.logger.Error("Audit service: failed to record async event",
				"action", string(event.Action),
				"error", err.Error())
		}
		cancel()
	}
}

// Dropped reports how many informational events were discarded on overflow.
func (a *Audit) Dropped() uint64 {
	return a.dropped.Load()
}

// Close drains the queued events and stops the worker.
func (a *Audit) Close() {
	a.once.Do(func() {
		close(a.events)
	})
	a.wg.Wait()
}

func (a *Audit) List(ctx context.Context, filter model.AuditFilter, page model.Page) ([]model.AuditEvent, int, error) {
	events, total, err := a.store.List(ctx, filter, page)
	if err != nil {
		a.logger.Error("Audit service: failed to list events",
			"error", err.Error())
		return nil, 0, fmt.Errorf("failed to list audit events: %w", err)
	}

	return events, total, nil
}

func (a *Audit) ListByActor(ctx context.Context, actorID uuid.UUID, page model.Page) ([]model.AuditEvent, int, error) {
	events, total, err := a.store.ListByActor(ctx, actorID, page)
	if err != nil {
		a.logger.Error("Audit service: failed to list events by actor",
			"actor_id", actorID.String(),
			"error", err.Error())
		return nil, 0, fmt.Errorf("failed to list audit events by actor: %w", err)
	}

	return events, total, nil
}

func (a *Audit) CountByAction(ctx context.Context, since time.Time) (map[model.AuditAction]int, error) {
	counts, err := a.store.CountByAction(ctx, since)
	if err != nil {
		a.logger.Error("Audit service: failed to count events",
			"error", err.Error())
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}

	return counts, nil
}

// newEvent builds an audit event with the shared request fields filled in.
// Callers add the actor, resource and detail.
func newEvent(action model.AuditAction, severity model.AuditSeverity, outcome model.AuditOutcome, meta model.RequestMeta) model.AuditEvent {
	return model.AuditEvent{
		ID:        uuid.New(),
		Action:    action,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Severity:  severity,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}
}

// resourceID renders an entity id as an audit resource reference.
func resourceID(id uuid.UUID) *string {
	s := id.String()
	return &s
}
