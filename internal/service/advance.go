package service

import (
	"context"

	"climate_scheduler/internal/models"
)

// Advance jumps the group to its next scheduled node ahead of time. The
// override holds until the natural schedule reaches the target's time, a
// cancel, or a newer advance replaces it - advances never stack.
func (s *SchedulerService) Advance(ctx context.Context, groupName string) (models.AdvanceOverride, error) {
	mu := s.lockGroup(groupName)
	mu.Lock()

	model, err := s.loadModel(ctx)
	if err != nil {
		mu.Unlock()
		return models.AdvanceOverride{}, err
	}
	g := model.Groups[groupName]
	if g == nil {
		mu.Unlock()
		return models.AdvanceOverride{}, ErrGroupNotFound
	}
	p := model.Profiles[g.ActiveProfile]
	if p == nil {
		mu.Unlock()
		return models.AdvanceOverride{}, ErrProfileNotFound
	}

	now := s.clock.Now()
	res := s.resolveProfile(ctx, p, now)
	if res.Next == nil {
		mu.Unlock()
		return models.AdvanceOverride{}, ErrNoUpcomingNode
	}

	// Replacing an existing override closes its history entry first, so
	// the log never shows two open advances for one group.
	s.mu.Lock()
	existing := s.overrides[groupName]
	s.mu.Unlock()
	if existing != nil && existing.CancelledAt == nil {
		s.dropOverride(ctx, groupName, now, "replaced")
	}

	ov := models.AdvanceOverride{
		ActivatedAt: now,
		TargetNode:  *res.Next,
		ExpiresAt:   nextOccurrence(now, res.Next.Time),
	}
	s.mu.Lock()
	s.overrides[groupName] = &ov
	s.mu.Unlock()

	entry := models.AdvanceHistoryEntry{
		GroupName:   groupName,
		ActivatedAt: now,
		TargetTime:  res.Next.Time.String(),
		TargetNode:  *res.Next,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Errorw("advance_history_append_failed", "group", groupName, "err", err)
	}

	s.log.Infow("advance_activated",
		"group", groupName,
		"target_time", entry.TargetTime,
		"expires_at", ov.ExpiresAt,
	)

	// Release before resolving: resolution takes the same group lock and
	// applies the override immediately.
	mu.Unlock()
	if err := s.ResolveGroup(ctx, groupName); err != nil {
		return ov, err
	}
	return ov, nil
}

// CancelAdvance ends an active override and resumes the natural schedule
// immediately. Cancelling when no override is active is a no-op.
func (s *SchedulerService) CancelAdvance(ctx context.Context, groupName string) error {
	mu := s.lockGroup(groupName)
	mu.Lock()

	s.mu.Lock()
	ov := s.overrides[groupName]
	s.mu.Unlock()
	if ov == nil || ov.CancelledAt != nil {
		mu.Unlock()
		return nil
	}

	now := s.clock.Now()
	cancelled := now
	ov.CancelledAt = &cancelled
	s.dropOverride(ctx, groupName, now, "cancelled")

	mu.Unlock()
	// Natural node re-applies straight away rather than on the next tick.
	return s.ResolveGroup(ctx, groupName)
}
