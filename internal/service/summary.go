package service

import (
	"context"
	"time"

	"climate_scheduler/internal/models"
)

// Summary builds the scheduler-compatible view of a group's schedule for
// the currently resolved day. It shares the data model and day-key logic
// with live resolution but performs no side effects and ignores any active
// advance override.
func (s *SchedulerService) Summary(ctx context.Context, groupName string) (models.ScheduleSummary, error) {
	model, err := s.loadModel(ctx)
	if err != nil {
		return models.ScheduleSummary{}, err
	}
	g := model.Groups[groupName]
	if g == nil {
		return models.ScheduleSummary{}, ErrGroupNotFound
	}
	p := model.Profiles[g.ActiveProfile]
	if p == nil {
		return models.ScheduleSummary{}, ErrProfileNotFound
	}

	now := s.clock.Now()
	dayKey := s.dayKey(ctx, p.Mode, now)
	return BuildSummary(g, p, dayKey, now), nil
}

// BuildSummary derives the summary from a snapshot. Deterministic: the same
// model and "now" always produce the same bytes, since external consumers
// cache and compare the output.
func BuildSummary(g *models.Group, p *models.Profile, dayKey string, now time.Time) models.ScheduleSummary {
	summary := models.ScheduleSummary{
		Actions:     []models.SummaryAction{},
		NextEntries: []models.SummaryEntry{},
		Weekdays:    weekdaysFor(p.Mode),
	}

	nodes := models.NormalizeNodes(p.Days[dayKey])
	if len(nodes) == 0 {
		return summary
	}

	// A virtual group still has one action column so the timeline shape
	// survives; its entity id is empty.
	entities := g.Entities
	if len(entities) == 0 {
		entities = []string{""}
	}

	for _, n := range nodes {
		for _, entityID := range entities {
			summary.Actions = append(summary.Actions, nodeAction(n, entityID))
		}
	}

	// First node at or after now; past the last node it wraps to the
	// day's first node, tomorrow.
	minute := models.MinuteOfDay(now.Hour()*60 + now.Minute())
	nextIdx := -1
	for i := range nodes {
		if nodes[i].Time >= minute {
			nextIdx = i
			break
		}
	}
	trigger := time.Time{}
	if nextIdx == -1 {
		nextIdx = 0
		trigger = absoluteAt(now.AddDate(0, 0, 1), nodes[0].Time)
	} else {
		trigger = absoluteAt(now, nodes[nextIdx].Time)
	}

	slot := nextIdx * len(entities)
	summary.NextSlot = &slot
	summary.NextTrigger = &trigger

	for _, n := range nodes {
		at := absoluteAt(now, n.Time)
		if at.Before(now) {
			at = at.AddDate(0, 0, 1)
		}
		entry := models.SummaryEntry{Time: at, TriggerTime: at}
		for _, entityID := range entities {
			entry.Actions = append(entry.Actions, temperatureAction(n, entityID))
		}
		summary.NextEntries = append(summary.NextEntries, entry)
	}

	return summary
}

// nodeAction renders one (entity, node) pair as a service call. Nodes whose
// only payload is a preset become preset calls; everything else is a
// temperature call with the optional hvac mode piggybacked. Null fields are
// reported as explicit nulls, not dropped.
func nodeAction(n models.Node, entityID string) models.SummaryAction {
	if n.PresetMode != nil && n.Temperature == nil {
		return models.SummaryAction{
			EntityID: entityID,
			Service:  "climate.set_preset_mode",
			Data:     map[string]any{"preset_mode": *n.PresetMode},
		}
	}
	return temperatureAction(n, entityID)
}

func temperatureAction(n models.Node, entityID string) models.SummaryAction {
	data := map[string]any{"temperature": n.Temperature}
	if n.HvacMode != nil {
		data["hvac_mode"] = *n.HvacMode
	}
	return models.SummaryAction{
		EntityID: entityID,
		Service:  "climate.set_temperature",
		Data:     data,
	}
}

// absoluteAt anchors a minute-of-day on the given date in its location.
func absoluteAt(date time.Time, m models.MinuteOfDay) time.Time {
	c := m.Clamp()
	return time.Date(date.Year(), date.Month(), date.Day(), int(c)/60, int(c)%60, 0, 0, date.Location())
}

// weekdaysFor is the scheduler-compatible weekday list per mode.
func weekdaysFor(mode models.ScheduleMode) []string {
	switch mode {
	case models.ModeWeekdayWeekend:
		return []string{"workday", "weekend"}
	case models.ModeIndividual:
		return append([]string(nil), models.WeekdayKeys...)
	default:
		return []string{"daily"}
	}
}
