package models

// ScheduleMode determines how a profile's day schedules are keyed.
type ScheduleMode string

const (
	ModeAllDays        ScheduleMode = "all_days"
	ModeWeekdayWeekend ScheduleMode = "weekday_weekend"
	ModeIndividual     ScheduleMode = "individual"
)

// Day keys used by DaySchedule, depending on the schedule mode.
const (
	DayKeyAllDays = "all_days"
	DayKeyWeekday = "weekday"
	DayKeyWeekend = "weekend"
)

// WeekdayKeys are the per-weekday keys for ModeIndividual, ordered Mon..Sun.
var WeekdayKeys = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// DaySchedule holds the ordered node list per day key. An empty map is a
// valid schedule and resolves to "no active node".
type DaySchedule map[string][]Node

// Normalize applies NormalizeNodes to every day.
func (d DaySchedule) Normalize() {
	for key, nodes := range d {
		d[key] = NormalizeNodes(nodes)
	}
}

// Profile is a named, shared bundle of schedule mode plus day schedules.
// Groups reference profiles by name; profiles outlive any one group.
type Profile struct {
	Mode ScheduleMode `json:"schedule_mode"`
	Days DaySchedule  `json:"schedules"`
}

// Group is a named schedule target owning zero or more climate entities.
// An empty entity set is a virtual schedule: it still resolves and emits
// transition events but issues no device commands.
type Group struct {
	Entities      []string `json:"entities"`
	Enabled       bool     `json:"enabled"`
	Ignored       bool     `json:"ignored,omitempty"`
	ActiveProfile string   `json:"active_profile"`
	DisplayName   string   `json:"display_name,omitempty"`

	// Transition bookkeeping, mutated only by the application engine under
	// the per-group lock.
	LastAppliedNodeKey   string `json:"last_applied_node_key,omitempty"`
	LastAppliedSignature string `json:"last_applied_signature,omitempty"`
}

// Settings are the global engine settings stored with the model.
type Settings struct {
	MinTemp float64 `json:"min_temp"`
	MaxTemp float64 `json:"max_temp"`
}

// ScheduleModel is the whole persisted data model. The engine treats storage
// as get/put of this document; all write-time validation happens before Save.
type ScheduleModel struct {
	Groups   map[string]*Group   `json:"groups"`
	Profiles map[string]*Profile `json:"profiles"`
	Settings Settings            `json:"settings"`
}

// EnsureDefaults initializes missing maps and settings bounds so loaded
// documents from older versions stay usable.
func (m *ScheduleModel) EnsureDefaults(minTemp, maxTemp float64) {
	if m.Groups == nil {
		m.Groups = make(map[string]*Group)
	}
	if m.Profiles == nil {
		m.Profiles = make(map[string]*Profile)
	}
	if m.Settings.MinTemp == 0 && m.Settings.MaxTemp == 0 {
		m.Settings.MinTemp = minTemp
		m.Settings.MaxTemp = maxTemp
	}
}
