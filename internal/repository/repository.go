package repository

import (
	"context"
	"database/sql"
	"time"

	"climate_scheduler/internal/models"
)

// ScheduleRepo stores the whole schedule model as one document. The engine
// only needs get/put semantics; there is no partial-update contract.
type ScheduleRepo interface {
	Load(ctx context.Context) (models.ScheduleModel, error)
	Save(ctx context.Context, m models.ScheduleModel) error
}

// HistoryRepo is the append-only advance history per group.
type HistoryRepo interface {
	Append(ctx context.Context, e models.AdvanceHistoryEntry) error
	// CloseLatest stamps CancelledAt on the newest open entry for the group.
	// Cancel and natural supersession are recorded identically.
	CloseLatest(ctx context.Context, groupName string, at time.Time) error
	List(ctx context.Context, groupName string, since time.Time) ([]models.AdvanceHistoryEntry, error)
	Clear(ctx context.Context, groupName string) error
}

// EventRepo is the append-only transition event log.
type EventRepo interface {
	Append(ctx context.Context, e models.ScheduleEvent) error
	List(ctx context.Context, from, to time.Time, groupName string) ([]models.ScheduleEvent, error)
}

// PerformanceRepo stores completed heating/cooling sessions.
type PerformanceRepo interface {
	Append(ctx context.Context, s models.PerformanceSession) error
	List(ctx context.Context, entityID string, since time.Time) ([]models.PerformanceSession, error)
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type Repository struct {
	Schedule    ScheduleRepo
	History     HistoryRepo
	Events      EventRepo
	Performance PerformanceRepo
	Auth        Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Schedule:    NewScheduleSQLite(db),
		History:     NewHistorySQLite(db),
		Events:      NewEventSQLite(db),
		Performance: NewPerformanceSQLite(db),
		Auth:        NewUserRepository(db),
	}
}
