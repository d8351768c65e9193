package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"climate_scheduler/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	scheduleDocRowID = 1

	upsertScheduleSQL = `
		INSERT INTO schedule_store (id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document=excluded.document,
			updated_at=excluded.updated_at
	`

	selectScheduleSQL = `SELECT document FROM schedule_store WHERE id=?`
)

// Save persists the whole model as a single JSON document (id always 1).
func (r *ScheduleSQLite) Save(ctx context.Context, m models.ScheduleModel) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal schedule model: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertScheduleSQL, scheduleDocRowID, string(doc), time.Now().UTC())
	return err
}

// Load fetches the model document. A missing row yields an empty model, not
// an error: a fresh database simply has no schedules yet.
func (r *ScheduleSQLite) Load(ctx context.Context) (models.ScheduleModel, error) {
	row := r.db.QueryRowContext(ctx, selectScheduleSQL, scheduleDocRowID)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ScheduleModel{}, nil
		}
		return models.ScheduleModel{}, err
	}

	var m models.ScheduleModel
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return models.ScheduleModel{}, fmt.Errorf("unmarshal schedule model: %w", err)
	}
	return m, nil
}
