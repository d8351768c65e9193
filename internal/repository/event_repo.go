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

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

var _ EventRepo = (*EventSQLite)(nil)

const (
	insertEventSQL = `
		INSERT INTO schedule_events (id, occurred_at, group_name, entity_id, day_key, trigger_type, node, previous_node)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	baseSelectEventsSQL = `
		SELECT id, occurred_at, group_name, entity_id, day_key, trigger_type, node, previous_node
		FROM schedule_events
	`
)

// Append inserts a new event. EventID and OccurredAt are set if empty.
func (r *EventSQLite) Append(ctx context.Context, e models.ScheduleEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	node, err := json.Marshal(e.Node)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	var prev *string
	if e.PreviousNode != nil {
		b, err := json.Marshal(e.PreviousNode)
		if err != nil {
			return fmt.Errorf("marshal previous node: %w", err)
		}
		s := string(b)
		prev = &s
	}

	_, err = r.db.ExecContext(ctx, insertEventSQL,
		e.EventID, e.OccurredAt, e.GroupName, e.EntityID, e.DayKey, e.Trigger, string(node), prev)
	return err
}

// List returns events in a time range, optionally filtered by group name.
// Zero from/to bounds are open ends.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, groupName string) ([]models.ScheduleEvent, error) {
	query := baseSelectEventsSQL
	var (
		clauses []string
		args    []any
	)
	if !from.IsZero() {
		clauses = append(clauses, "occurred_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		clauses = append(clauses, "occurred_at <= ?")
		args = append(args, to.UTC())
	}
	if groupName != "" {
		clauses = append(clauses, "group_name = ?")
		args = append(args, groupName)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduleEvent
	for rows.Next() {
		var (
			e        models.ScheduleEvent
			entity   sql.NullString
			nodeJSON string
			prevJSON sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.OccurredAt, &e.GroupName, &entity, &e.DayKey, &e.Trigger, &nodeJSON, &prevJSON); err != nil {
			return nil, err
		}
		if entity.Valid {
			s := entity.String
			e.EntityID = &s
		}
		if err := json.Unmarshal([]byte(nodeJSON), &e.Node); err != nil {
			return nil, fmt.Errorf("unmarshal node: %w", err)
		}
		if prevJSON.Valid {
			var prev models.Node
			if err := json.Unmarshal([]byte(prevJSON.String), &prev); err != nil {
				return nil, fmt.Errorf("unmarshal previous node: %w", err)
			}
			e.PreviousNode = &prev
		}
		e.OccurredAt = e.OccurredAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
