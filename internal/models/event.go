package models

import "time"

// Trigger classifies why a node was applied.
const (
	TriggerScheduled     = "scheduled"
	TriggerManualAdvance = "manual_advance"
)

// ScheduleEvent is one emitted domain event. Only genuine transitions (a new
// node becoming active, by time or by advance) produce events; re-assertions
// after an edit of the active node do not.
type ScheduleEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	GroupName  string    `json:"group_name"`
	EntityID   *string   `json:"entity_id"` // nil for virtual groups
	DayKey     string    `json:"day_key"`
	Trigger    string    `json:"trigger"` // scheduled | manual_advance
	Node       Node      `json:"node"`
	// PreviousNode is set for scheduled transitions only.
	PreviousNode *Node `json:"previous_node,omitempty"`
}

// PerformanceSession records one heating/cooling run between a transition and
// the moment the reported temperature reached the target (or gave up).
type PerformanceSession struct {
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	GroupName   string    `json:"group_name"`
	Profile     string    `json:"profile"`
	SessionType string    `json:"session_type"` // heating | cooling
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	StartTemp   float64   `json:"start_temp"`
	EndTemp     float64   `json:"end_temp"`
	TargetTemp  float64   `json:"target_temp"`
	RatePerHour float64   `json:"rate_per_hour"` // °C per hour
	Completed   bool      `json:"completed"`     // reached target, not timed out
}
