package service

import (
	"context"
	"time"

	"climate_scheduler/internal/models"
)

// weekdayKey maps a time.Weekday to the individual-mode day key.
var weekdayKey = map[time.Weekday]string{
	time.Monday:    "mon",
	time.Tuesday:   "tue",
	time.Wednesday: "wed",
	time.Thursday:  "thu",
	time.Friday:    "fri",
	time.Saturday:  "sat",
	time.Sunday:    "sun",
}

// DayKeyFor resolves the day key a schedule lookup uses. Pure and
// deterministic: mode plus weekday plus an optional workday answer (nil when
// no calendar is available) fully determine the result. An unrecognized mode
// is a configuration problem, not a runtime fault, and resolves to all_days;
// the second return value reports whether the mode was known.
func DayKeyFor(mode models.ScheduleMode, weekday time.Weekday, workday *bool) (string, bool) {
	switch mode {
	case models.ModeAllDays:
		return models.DayKeyAllDays, true
	case models.ModeWeekdayWeekend:
		if workday != nil {
			if *workday {
				return models.DayKeyWeekday, true
			}
			return models.DayKeyWeekend, true
		}
		// Static Mon-Fri fallback when the calendar is unavailable.
		if weekday == time.Saturday || weekday == time.Sunday {
			return models.DayKeyWeekend, true
		}
		return models.DayKeyWeekday, true
	case models.ModeIndividual:
		return weekdayKey[weekday], true
	default:
		return models.DayKeyAllDays, false
	}
}

// dayKey resolves the key for a given instant, consulting the workday
// calendar for the weekday/weekend split when one is configured.
func (s *SchedulerService) dayKey(ctx context.Context, mode models.ScheduleMode, t time.Time) string {
	var workday *bool
	if mode == models.ModeWeekdayWeekend && s.workdays != nil {
		if w, err := s.workdays.IsWorkday(ctx, t.Format("2006-01-02")); err == nil {
			workday = &w
		} else if s.log != nil {
			s.log.Debugw("workday_calendar_unavailable", "err", err)
		}
	}
	key, known := DayKeyFor(mode, t.Weekday(), workday)
	if !known && s.log != nil {
		s.log.Warnw("unknown_schedule_mode", "mode", mode, "fallback", key)
	}
	return key
}
