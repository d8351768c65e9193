package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"climate_scheduler/internal/models"
)

func TestAdvance_AppliesNextNodeImmediately(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 20)

	ov, err := s.Advance(context.Background(), "living")
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	if ov.TargetNode.Temperature == nil || *ov.TargetNode.Temperature != 17 {
		t.Fatalf("expected 22:00/17°C target, got %+v", ov.TargetNode)
	}
	want := at(22, 0)
	if !ov.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, ov.ExpiresAt)
	}

	calls := deps.transport.appliedCalls()
	if len(calls) != 1 || calls[0].cmd.Temperature.Value != 17 {
		t.Fatalf("advance must apply the target now, got %+v", calls)
	}

	events := deps.sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Trigger != models.TriggerManualAdvance {
		t.Fatalf("expected manual_advance trigger, got %q", events[0].Trigger)
	}
	if events[0].PreviousNode != nil {
		t.Fatalf("manual advance events carry no previous node, got %+v", events[0].PreviousNode)
	}
}

func TestAdvance_ExpiresWhenScheduleCatchesUp(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 20)

	ctx := context.Background()
	if _, err := s.Advance(ctx, "living"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if s.OverrideStatus("living") == nil {
		t.Fatalf("override should be active")
	}
	deps.transport.reset()
	deps.sink.reset()

	// Tick past the target's natural time: the override is superseded and
	// the natural schedule takes over.
	deps.clock.set(at(22, 1))
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}

	if s.OverrideStatus("living") != nil {
		t.Fatalf("override must be gone after the schedule caught up")
	}

	// The natural 22:00 node now applies under the scheduled trigger.
	events := deps.sink.all()
	if len(events) != 1 || events[0].Trigger != models.TriggerScheduled {
		t.Fatalf("expected scheduled transition after expiry, got %+v", events)
	}

	entries, err := s.History(ctx, "living", 24*time.Hour)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].CancelledAt == nil {
		t.Fatalf("history entry should be closed on supersession, got %+v", entries)
	}
}

func TestAdvance_ReplaceClosesPreviousHistoryEntry(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 20)

	ctx := context.Background()
	if _, err := s.Advance(ctx, "living"); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	deps.clock.set(at(10, 30))
	if _, err := s.Advance(ctx, "living"); err != nil {
		t.Fatalf("second advance: %v", err)
	}

	entries, err := s.History(ctx, "living", 24*time.Hour)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].CancelledAt == nil {
		t.Fatalf("replaced advance must be closed: %+v", entries[0])
	}
	if entries[1].CancelledAt != nil {
		t.Fatalf("current advance must stay open: %+v", entries[1])
	}
}

func TestCancelAdvance_RestoresNaturalNode(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 20)

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("initial resolve: %v", err)
	}
	if _, err := s.Advance(ctx, "living"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	deps.transport.reset()

	deps.clock.set(at(10, 10))
	if err := s.CancelAdvance(ctx, "living"); err != nil {
		t.Fatalf("CancelAdvance() error = %v", err)
	}

	if s.OverrideStatus("living") != nil {
		t.Fatalf("override must be cleared after cancel")
	}
	calls := deps.transport.appliedCalls()
	if len(calls) != 1 || calls[0].cmd.Temperature.Value != 21 {
		t.Fatalf("cancel must re-apply the natural 21°C node, got %+v", calls)
	}

	entries, err := s.History(ctx, "living", 24*time.Hour)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].CancelledAt == nil {
		t.Fatalf("history entry should record the cancel, got %+v", entries)
	}
}

func TestCancelAdvance_NoopWithoutOverride(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 20)

	if err := s.CancelAdvance(context.Background(), "living"); err != nil {
		t.Fatalf("CancelAdvance() error = %v", err)
	}
	// Nothing was active, so nothing resolves or applies.
	if calls := deps.transport.appliedCalls(); len(calls) != 0 {
		t.Fatalf("no-op cancel must not apply anything, got %d", len(calls))
	}
}

func TestAdvance_NoUpcomingNodeFails(t *testing.T) {
	m := basicModel()
	m.Profiles["Default"].Days = models.DaySchedule{}
	s, _ := newTestEngine(t, m, at(10, 0))

	_, err := s.Advance(context.Background(), "living")
	if !errors.Is(err, ErrNoUpcomingNode) {
		t.Fatalf("expected ErrNoUpcomingNode, got %v", err)
	}
}

func TestAdvance_UnknownGroupFails(t *testing.T) {
	s, _ := newTestEngine(t, basicModel(), at(10, 0))
	if _, err := s.Advance(context.Background(), "attic"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestAdvance_ReadvanceAfterExpiryTargetsFollowingNode(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(21, 0))
	deps.transport.setReading("climate.living", 20)

	ctx := context.Background()
	if _, err := s.Advance(ctx, "living"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	// Past 22:00 the next node wraps to tomorrow's 06:00.
	deps.clock.set(at(22, 30))
	ov, err := s.Advance(ctx, "living")
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if ov.TargetNode.Temperature == nil || *ov.TargetNode.Temperature != 21 {
		t.Fatalf("expected tomorrow's 06:00 node, got %+v", ov.TargetNode)
	}
	want := at(6, 0).AddDate(0, 0, 1)
	if !ov.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, ov.ExpiresAt)
	}
}
