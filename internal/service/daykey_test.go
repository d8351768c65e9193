package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"climate_scheduler/internal/models"
)

func TestDayKeyFor(t *testing.T) {
	tr := true
	fa := false

	tests := []struct {
		name    string
		mode    models.ScheduleMode
		weekday time.Weekday
		workday *bool
		want    string
		known   bool
	}{
		{"all_days ignores weekday", models.ModeAllDays, time.Saturday, nil, models.DayKeyAllDays, true},
		{"split with calendar workday", models.ModeWeekdayWeekend, time.Saturday, &tr, models.DayKeyWeekday, true},
		{"split with calendar holiday", models.ModeWeekdayWeekend, time.Tuesday, &fa, models.DayKeyWeekend, true},
		{"split fallback monday", models.ModeWeekdayWeekend, time.Monday, nil, models.DayKeyWeekday, true},
		{"split fallback sunday", models.ModeWeekdayWeekend, time.Sunday, nil, models.DayKeyWeekend, true},
		{"individual wednesday", models.ModeIndividual, time.Wednesday, nil, "wed", true},
		{"individual sunday", models.ModeIndividual, time.Sunday, nil, "sun", true},
		{"unknown mode falls back", models.ScheduleMode("lunar"), time.Monday, nil, models.DayKeyAllDays, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, known := DayKeyFor(tc.mode, tc.weekday, tc.workday)
			if got != tc.want || known != tc.known {
				t.Fatalf("DayKeyFor(%q, %v, %v) = (%q, %v), want (%q, %v)",
					tc.mode, tc.weekday, tc.workday, got, known, tc.want, tc.known)
			}
		})
	}
}

func TestDayKey_ConsultsWorkdayCalendarOnlyForSplitMode(t *testing.T) {
	// 2026-03-14 is a Saturday; the calendar declares it a workday
	// (e.g. a swapped working Saturday).
	sat := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	m := basicModel()
	m.Profiles["Default"].Mode = models.ModeWeekdayWeekend
	m.Profiles["Default"].Days = models.DaySchedule{
		models.DayKeyWeekday: {{Time: 6 * 60, Temperature: fp(21)}},
		models.DayKeyWeekend: {{Time: 8 * 60, Temperature: fp(19)}},
	}
	s, _ := newTestEngine(t, m, sat)
	ctx := context.Background()

	s.workdays = &fakeWorkdays{workday: true}
	if got := s.dayKey(ctx, models.ModeWeekdayWeekend, sat); got != models.DayKeyWeekday {
		t.Fatalf("calendar workday answer must win over the static weekday, got %q", got)
	}

	// A failing calendar falls back to the static Mon-Fri split.
	s.workdays = &fakeWorkdays{err: errors.New("calendar down")}
	if got := s.dayKey(ctx, models.ModeWeekdayWeekend, sat); got != models.DayKeyWeekend {
		t.Fatalf("static fallback should key Saturday as weekend, got %q", got)
	}

	// all_days mode never asks the calendar.
	s.workdays = &fakeWorkdays{workday: true}
	if got := s.dayKey(ctx, models.ModeAllDays, sat); got != models.DayKeyAllDays {
		t.Fatalf("all_days must not depend on the calendar, got %q", got)
	}
}
