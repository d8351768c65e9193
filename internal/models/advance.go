package models

import "time"

// AdvanceOverride is a manual jump to the schedule's next node. At most one
// exists per group; a new advance replaces the previous one. An override with
// no CancelledAt whose expiry has passed is stale: the schedule caught up to
// it and resolution drops it without an explicit cancel.
type AdvanceOverride struct {
	ActivatedAt time.Time  `json:"activated_at"`
	TargetNode  Node       `json:"target_node"`
	ExpiresAt   time.Time  `json:"expires_at"` // next wall-clock occurrence of TargetNode.Time
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// Active reports whether the override still substitutes the resolved node
// at the given instant.
func (o *AdvanceOverride) Active(now time.Time) bool {
	if o == nil || o.CancelledAt != nil {
		return false
	}
	return now.Before(o.ExpiresAt)
}

// AdvanceHistoryEntry is one append-only record of an advance activation.
// History has no effect on resolution; it only feeds display and the
// previous-node context of emitted events.
type AdvanceHistoryEntry struct {
	ID          string     `json:"id"`
	GroupName   string     `json:"group_name"`
	ActivatedAt time.Time  `json:"activated_at"`
	TargetTime  string     `json:"target_time"` // "HH:MM" of the target node
	TargetNode  Node       `json:"target_node"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}
