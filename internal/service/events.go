package service

import (
	"context"

	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"
)

// EventName is the domain event emitted on schedule transitions.
const EventName = "climate_scheduler_transition"

// EventSink receives transition events. Sinks must not block resolution for
// long; failures are logged, never propagated into the engine.
type EventSink interface {
	Emit(ctx context.Context, name string, e models.ScheduleEvent)
}

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Emit(ctx context.Context, name string, e models.ScheduleEvent) {
	for _, s := range m {
		s.Emit(ctx, name, e)
	}
}

// eventLogSink persists events into the event repository.
type eventLogSink struct {
	repo repository.EventRepo
	log  *logger.Logger
}

func NewEventLogSink(repo repository.EventRepo, log *logger.Logger) EventSink {
	return &eventLogSink{repo: repo, log: log}
}

func (s *eventLogSink) Emit(ctx context.Context, name string, e models.ScheduleEvent) {
	if err := s.repo.Append(ctx, e); err != nil && s.log != nil {
		s.log.Errorw("event_append_failed", "event", name, "group", e.GroupName, "err", err)
	}
}
