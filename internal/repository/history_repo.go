package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"climate_scheduler/internal/models"

	"github.com/google/uuid"
)

type HistorySQLite struct {
	db *sql.DB
}

func NewHistorySQLite(db *sql.DB) *HistorySQLite { return &HistorySQLite{db: db} }

var _ HistoryRepo = (*HistorySQLite)(nil)

const (
	insertHistorySQL = `
		INSERT INTO advance_history (id, group_name, activated_at, target_time, target_node, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	closeLatestHistorySQL = `
		UPDATE advance_history SET cancelled_at = ?
		WHERE id = (
			SELECT id FROM advance_history
			WHERE group_name = ? AND cancelled_at IS NULL
			ORDER BY activated_at DESC LIMIT 1
		)
	`

	selectHistorySQL = `
		SELECT id, group_name, activated_at, target_time, target_node, cancelled_at
		FROM advance_history
		WHERE group_name = ? AND activated_at >= ?
		ORDER BY activated_at ASC
	`

	deleteHistorySQL = `DELETE FROM advance_history WHERE group_name = ?`
)

// Append inserts a new history entry. ID and ActivatedAt are set if empty.
func (r *HistorySQLite) Append(ctx context.Context, e models.AdvanceHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ActivatedAt.IsZero() {
		e.ActivatedAt = time.Now().UTC()
	} else {
		e.ActivatedAt = e.ActivatedAt.UTC()
	}

	node, err := json.Marshal(e.TargetNode)
	if err != nil {
		return fmt.Errorf("marshal target node: %w", err)
	}

	var cancelled *time.Time
	if e.CancelledAt != nil {
		t := e.CancelledAt.UTC()
		cancelled = &t
	}

	_, err = r.db.ExecContext(ctx, insertHistorySQL,
		e.ID, e.GroupName, e.ActivatedAt, e.TargetTime, string(node), cancelled)
	return err
}

func (r *HistorySQLite) CloseLatest(ctx context.Context, groupName string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, closeLatestHistorySQL, at.UTC(), groupName)
	return err
}

func (r *HistorySQLite) List(ctx context.Context, groupName string, since time.Time) ([]models.AdvanceHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectHistorySQL, groupName, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AdvanceHistoryEntry
	for rows.Next() {
		var (
			e         models.AdvanceHistoryEntry
			nodeJSON  string
			cancelled sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.GroupName, &e.ActivatedAt, &e.TargetTime, &nodeJSON, &cancelled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nodeJSON), &e.TargetNode); err != nil {
			return nil, fmt.Errorf("unmarshal target node: %w", err)
		}
		e.ActivatedAt = e.ActivatedAt.UTC()
		if cancelled.Valid {
			t := cancelled.Time.UTC()
			e.CancelledAt = &t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *HistorySQLite) Clear(ctx context.Context, groupName string) error {
	_, err := r.db.ExecContext(ctx, deleteHistorySQL, groupName)
	return err
}
