package climate

import "context"

// FieldState is the tri-state of one optional command field: not assigned,
// assigned as specified, or assigned after clamping into the allowed bounds.
type FieldState int

const (
	FieldUnset FieldState = iota
	FieldSet
	FieldClamped
)

// NumberField is an optional numeric assignment.
type NumberField struct {
	State FieldState `json:"state"`
	Value float64    `json:"value,omitempty"`
}

// TextField is an optional string assignment.
type TextField struct {
	State FieldState `json:"state"`
	Value string     `json:"value,omitempty"`
}

// CommandSet is the per-entity field assignment produced by the application
// engine. Unset fields leave the device setting unchanged.
type CommandSet struct {
	Temperature NumberField `json:"temperature"`
	HvacMode    TextField   `json:"hvac_mode"`
	FanMode     TextField   `json:"fan_mode"`
	SwingMode   TextField   `json:"swing_mode"`
	PresetMode  TextField   `json:"preset_mode"`
}

// Empty reports whether the command set assigns nothing.
func (c CommandSet) Empty() bool {
	return c.Temperature.State == FieldUnset &&
		c.HvacMode.State == FieldUnset &&
		c.FanMode.State == FieldUnset &&
		c.SwingMode.State == FieldUnset &&
		c.PresetMode.State == FieldUnset
}

// Transport issues commands to climate devices and reads their reported
// state. A nil current temperature marks the entity preset-only: temperature
// commands are skipped for it.
type Transport interface {
	CurrentTemperature(ctx context.Context, entityID string) (*float64, error)
	Apply(ctx context.Context, entityID string, cmd CommandSet) error
}

// WorkdayCalendar answers whether a date is a workday, for the
// weekday/weekend schedule split. Implementations may be unavailable; the
// resolver then falls back to a static Mon-Fri partition.
type WorkdayCalendar interface {
	IsWorkday(ctx context.Context, date string) (bool, error) // date is YYYY-MM-DD
}
