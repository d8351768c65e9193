package service

import (
	"context"
	"errors"
	"time"

	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"
)

var ErrInvalidLogWindow = errors.New("log window start is after its end")

// LogFilter narrows an event-log query. Zero From defaults to 24 hours
// before To; zero To defaults to now. Empty GroupName matches every group.
type LogFilter struct {
	From      time.Time
	To        time.Time
	GroupName string
}

func (f *LogFilter) normalize() error {
	if f.To.IsZero() {
		f.To = time.Now()
	}
	if f.From.IsZero() {
		f.From = f.To.Add(-24 * time.Hour)
	}
	if f.From.After(f.To) {
		return ErrInvalidLogWindow
	}
	return nil
}

// EventLogService reads the transition event log. Writes happen only
// through the event sink on the apply path.
type EventLogService struct {
	repo repository.EventRepo
}

func NewEventLogService(repo repository.EventRepo) *EventLogService {
	return &EventLogService{repo: repo}
}

var _ EventLog = (*EventLogService)(nil)

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ScheduleEvent, error) {
	if err := f.normalize(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, f.From, f.To, f.GroupName)
}
