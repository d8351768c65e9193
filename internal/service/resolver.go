package service

import (
	"context"
	"time"

	"climate_scheduler/internal/models"
)

// Resolution is the outcome of resolving a profile against an instant:
// the naturally active node, the upcoming node and the day key used.
// Nil fields in the nodes stay nil here; they collapse to "leave as-is"
// only at application time.
type Resolution struct {
	Active *models.Node
	Next   *models.Node
	DayKey string
}

// activeAndNext scans a day's sorted nodes and returns the node with the
// greatest time not after the given minute, plus the node right after it.
// Equal times cannot survive normalization, but unsorted or duplicated
// input is tolerated: the slice is normalized defensively by the caller.
func activeAndNext(nodes []models.Node, minute models.MinuteOfDay) (active, next *models.Node) {
	for i := range nodes {
		if nodes[i].Time <= minute {
			active = &nodes[i]
		} else {
			next = &nodes[i]
			break
		}
	}
	return active, next
}

// resolveProfile computes (active, next) for a profile at the given instant.
//
// When now is before the day's first node, the previous applicable day is
// re-keyed and its last node becomes active - one level of look-back only.
// When now is past the day's last node, next wraps to tomorrow's first node.
// A day with no nodes anywhere yields a nil active node ("no schedule yet").
func (s *SchedulerService) resolveProfile(ctx context.Context, p *models.Profile, now time.Time) Resolution {
	key := s.dayKey(ctx, p.Mode, now)
	nodes := models.NormalizeNodes(p.Days[key])
	minute := models.MinuteOfDay(now.Hour()*60 + now.Minute())

	active, next := activeAndNext(nodes, minute)

	if active == nil {
		yesterday := now.AddDate(0, 0, -1)
		ykey := s.dayKey(ctx, p.Mode, yesterday)
		ynodes := models.NormalizeNodes(p.Days[ykey])
		if len(ynodes) > 0 {
			active = &ynodes[len(ynodes)-1]
		}
	}

	if next == nil {
		tomorrow := now.AddDate(0, 0, 1)
		tkey := s.dayKey(ctx, p.Mode, tomorrow)
		tnodes := models.NormalizeNodes(p.Days[tkey])
		if len(tnodes) > 0 {
			next = &tnodes[0]
		}
	}

	return Resolution{Active: active, Next: next, DayKey: key}
}

// nextOccurrence returns the first wall-clock instant at or after now whose
// minute-of-day equals m. Used to anchor advance override expiry.
func nextOccurrence(now time.Time, m models.MinuteOfDay) time.Time {
	c := m.Clamp()
	at := time.Date(now.Year(), now.Month(), now.Day(), int(c)/60, int(c)%60, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
