package models

import "time"

// SummaryAction is one flattened (entity, node) command in the day's
// timeline, in scheduler-compatible shape.
type SummaryAction struct {
	EntityID string         `json:"entity_id"`
	Service  string         `json:"service"`
	Data     map[string]any `json:"data"`
}

// SummaryEntry groups a node's actions under its absolute trigger timestamp.
type SummaryEntry struct {
	Time        time.Time       `json:"time"`
	TriggerTime time.Time       `json:"trigger_time"`
	Actions     []SummaryAction `json:"actions"`
}

// ScheduleSummary is the read-only external surface other systems poll. It is
// derived from the data model and "now" alone, never from live override
// state, and must be reproducible byte-for-byte for identical inputs.
type ScheduleSummary struct {
	NextTrigger *time.Time      `json:"next_trigger"`
	NextSlot    *int            `json:"next_slot"`
	Actions     []SummaryAction `json:"actions"`
	NextEntries []SummaryEntry  `json:"next_entries"`
	Weekdays    []string        `json:"weekdays"`
}
