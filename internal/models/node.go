package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MinuteOfDay is a schedule slot time, minutes since midnight (0-1439).
// It marshals as "HH:MM" to match the stored schedule format.
type MinuteOfDay int

const (
	// LastMinute is 23:59. A declared "24:00" normalizes here so it can
	// never collide with the next day's 00:00 node.
	LastMinute MinuteOfDay = 24*60 - 1

	minutesPerDay = 24 * 60
)

// ParseMinuteOfDay converts "HH:MM" into a MinuteOfDay, normalizing "24:00"
// to 23:59.
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
	}
	if hours == 24 && minutes == 0 {
		return LastMinute, nil
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return MinuteOfDay(hours*60 + minutes), nil
}

// Clamp returns the value normalized into [0, 23:59].
func (m MinuteOfDay) Clamp() MinuteOfDay {
	if m < 0 {
		return 0
	}
	if m >= minutesPerDay {
		return LastMinute
	}
	return m
}

// String renders the canonical "HH:MM" form.
func (m MinuteOfDay) String() string {
	c := m.Clamp()
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (m MinuteOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both the "HH:MM" string form and a raw minute count.
func (m *MinuteOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, perr := ParseMinuteOfDay(s)
		if perr != nil {
			return perr
		}
		*m = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid minute-of-day %s", data)
	}
	*m = MinuteOfDay(n).Clamp()
	return nil
}

// Node is one scheduled instant: a time plus the target settings that become
// active from that time on. Nil fields mean "do not change that setting".
type Node struct {
	Time        MinuteOfDay `json:"time"`
	Temperature *float64    `json:"temp,omitempty"`
	HvacMode    *string     `json:"hvac_mode,omitempty"`
	FanMode     *string     `json:"fan_mode,omitempty"`
	SwingMode   *string     `json:"swing_mode,omitempty"`
	PresetMode  *string     `json:"preset_mode,omitempty"`

	// Free-form numeric passthrough for host-defined automation payloads.
	PayloadA *float64 `json:"payload_a,omitempty"`
	PayloadB *float64 `json:"payload_b,omitempty"`
	PayloadC *float64 `json:"payload_c,omitempty"`
}

// NormalizeNodes sorts nodes ascending by time, clamps times into the valid
// range and collapses duplicate times (the later entry wins). Validation
// happens here, at the write boundary, so resolution never has to reject.
func NormalizeNodes(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Node, len(nodes))
	copy(out, nodes)
	for i := range out {
		out[i].Time = out[i].Time.Clamp()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	dedup := out[:0]
	for _, n := range out {
		if len(dedup) > 0 && dedup[len(dedup)-1].Time == n.Time {
			dedup[len(dedup)-1] = n // last-inserted wins
			continue
		}
		dedup = append(dedup, n)
	}
	return dedup
}
