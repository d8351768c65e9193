package service

import (
	"context"
	"sync"

	"climate_scheduler/internal/climate"
	"climate_scheduler/internal/models"
)

// buildCommands converts the effective node into one entity's command set.
//
// A nil reading classifies the entity preset-only: the temperature
// assignment is skipped entirely, whatever the node says. A nil node
// temperature means "do not change temperature" for every entity. Mode
// fields apply uniformly regardless of preset-only status.
func buildCommands(n *models.Node, reading *float64, settings models.Settings) climate.CommandSet {
	var cmd climate.CommandSet

	if n.Temperature != nil && reading != nil {
		t := *n.Temperature
		state := climate.FieldSet
		if clamped := clampTemp(t, settings); clamped != t {
			t = clamped
			state = climate.FieldClamped
		}
		cmd.Temperature = climate.NumberField{State: state, Value: t}
	}

	for _, f := range []struct {
		src *string
		dst *climate.TextField
	}{
		{n.HvacMode, &cmd.HvacMode},
		{n.FanMode, &cmd.FanMode},
		{n.SwingMode, &cmd.SwingMode},
		{n.PresetMode, &cmd.PresetMode},
	} {
		if f.src != nil {
			*f.dst = climate.TextField{State: climate.FieldSet, Value: *f.src}
		}
	}
	return cmd
}

// applyGroup expands the effective node into per-entity commands, issues
// them concurrently and emits transition events. It reports whether at least
// one entity succeeded (a virtual group trivially succeeds), which gates the
// bookkeeping update: if everything failed the node stays un-applied and the
// next tick retries.
func (s *SchedulerService) applyGroup(
	ctx context.Context,
	name string,
	g *models.Group,
	node *models.Node,
	dayKey, trigger string,
	prev *models.Node,
	emit bool,
	settings models.Settings,
) bool {
	if len(g.Entities) == 0 {
		// Virtual group: transition check and event only, no commands.
		if emit {
			s.emit(ctx, name, nil, dayKey, trigger, node, prev)
		}
		return true
	}

	succeeded := make([]bool, len(g.Entities))
	var wg sync.WaitGroup

	for i, entityID := range g.Entities {
		wg.Add(1)
		go func(i int, entityID string) {
			defer wg.Done()

			reading, err := s.transport.CurrentTemperature(ctx, entityID)
			if err != nil {
				// Unreadable is indistinguishable from absent: treat the
				// entity as preset-only for this cycle.
				s.log.Debugw("current_temperature_unavailable", "entity", entityID, "err", err)
				reading = nil
			}

			cmd := buildCommands(node, reading, settings)
			if err := s.transport.Apply(ctx, entityID, cmd); err != nil {
				// Isolated: other entities keep going, bookkeeping for the
				// group is decided by the aggregate outcome.
				s.log.Errorw("apply_failed", "group", name, "entity", entityID, "err", err)
				return
			}
			succeeded[i] = true

			if emit {
				id := entityID
				s.emit(ctx, name, &id, dayKey, trigger, node, prev)
			}

			if s.perf != nil && cmd.Temperature.State != climate.FieldUnset && reading != nil {
				s.perf.Observe(entityID, name, g.ActiveProfile, *reading, cmd.Temperature.Value)
			}
		}(i, entityID)
	}
	wg.Wait()

	for _, ok := range succeeded {
		if ok {
			return true
		}
	}
	return false
}

func (s *SchedulerService) emit(ctx context.Context, group string, entityID *string, dayKey, trigger string, node, prev *models.Node) {
	if s.sink == nil {
		return
	}
	e := models.ScheduleEvent{
		OccurredAt: s.clock.Now(),
		GroupName:  group,
		EntityID:   entityID,
		DayKey:     dayKey,
		Trigger:    trigger,
		Node:       *node,
	}
	if trigger == models.TriggerScheduled {
		e.PreviousNode = prev
	}
	s.sink.Emit(ctx, EventName, e)
}
