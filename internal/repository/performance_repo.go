package repository

import (
	"context"
	"database/sql"
	"time"

	"climate_scheduler/internal/models"

	"github.com/google/uuid"
)

type PerformanceSQLite struct {
	db *sql.DB
}

func NewPerformanceSQLite(db *sql.DB) *PerformanceSQLite { return &PerformanceSQLite{db: db} }

var _ PerformanceRepo = (*PerformanceSQLite)(nil)

const (
	insertSessionSQL = `
		INSERT INTO performance_sessions
			(id, entity_id, group_name, profile, session_type, started_at, ended_at,
			 start_temp, end_temp, target_temp, rate_per_hour, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectSessionsSQL = `
		SELECT id, entity_id, group_name, profile, session_type, started_at, ended_at,
		       start_temp, end_temp, target_temp, rate_per_hour, completed
		FROM performance_sessions
		WHERE entity_id = ? AND started_at >= ?
		ORDER BY started_at ASC
	`
)

func (r *PerformanceSQLite) Append(ctx context.Context, s models.PerformanceSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, insertSessionSQL,
		s.ID, s.EntityID, s.GroupName, s.Profile, s.SessionType,
		s.StartedAt.UTC(), s.EndedAt.UTC(),
		s.StartTemp, s.EndTemp, s.TargetTemp, s.RatePerHour, s.Completed)
	return err
}

func (r *PerformanceSQLite) List(ctx context.Context, entityID string, since time.Time) ([]models.PerformanceSession, error) {
	rows, err := r.db.QueryContext(ctx, selectSessionsSQL, entityID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PerformanceSession
	for rows.Next() {
		var s models.PerformanceSession
		if err := rows.Scan(&s.ID, &s.EntityID, &s.GroupName, &s.Profile, &s.SessionType,
			&s.StartedAt, &s.EndedAt, &s.StartTemp, &s.EndTemp, &s.TargetTemp,
			&s.RatePerHour, &s.Completed); err != nil {
			return nil, err
		}
		s.StartedAt = s.StartedAt.UTC()
		s.EndedAt = s.EndedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
