package service

import (
	"context"
	"math"
	"sync"
	"time"

	"climate_scheduler/internal/climate"
	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"
)

// Session thresholds. A session only opens when the setpoint moves the
// target meaningfully away from the room, and only counts once the entity
// has actually travelled; tiny or stalled sessions are discarded.
const (
	perfStartThreshold = 0.5             // °C gap between reading and target
	perfMinDelta       = 0.5             // °C travelled before a session counts
	perfMinDuration    = 5 * time.Minute // shorter sessions are noise
	perfTimeout        = 4 * time.Hour   // a session this old is abandoned
)

type openSession struct {
	entityID  string
	groupName string
	profile   string
	kind      string // "heating" or "cooling"
	startedAt time.Time
	startTemp float64
	target    float64
}

// PerformanceTracker derives per-entity heating and cooling rates from
// observed setpoint changes. Observe is called from the apply path when a
// temperature command is issued; Sweep runs on the periodic tick, polls the
// open sessions' current readings and closes the ones that finished.
type PerformanceTracker struct {
	repo      repository.PerformanceRepo
	transport climate.Transport
	clock     Clock
	log       *logger.Logger

	mu   sync.Mutex
	open map[string]*openSession
}

func NewPerformanceTracker(repo repository.PerformanceRepo, transport climate.Transport, clock Clock, log *logger.Logger) *PerformanceTracker {
	return &PerformanceTracker{
		repo:      repo,
		transport: transport,
		clock:     clock,
		log:       log,
		open:      make(map[string]*openSession),
	}
}

var _ Performance = (*PerformanceTracker)(nil)

// Observe starts a session for the entity when the new target is far enough
// from the current reading. A new setpoint always replaces an entity's open
// session; the replaced one is discarded, not persisted, because its target
// no longer exists.
func (t *PerformanceTracker) Observe(entityID, groupName, profile string, reading, target float64) {
	gap := target - reading
	if math.Abs(gap) < perfStartThreshold {
		t.mu.Lock()
		delete(t.open, entityID)
		t.mu.Unlock()
		return
	}

	kind := "heating"
	if gap < 0 {
		kind = "cooling"
	}

	t.mu.Lock()
	t.open[entityID] = &openSession{
		entityID:  entityID,
		groupName: groupName,
		profile:   profile,
		kind:      kind,
		startedAt: t.clock.Now(),
		startTemp: reading,
		target:    target,
	}
	t.mu.Unlock()

	if t.log != nil {
		t.log.Debugw("performance_session_started",
			"entity", entityID, "type", kind, "start_temp", reading, "target", target)
	}
}

// Sweep closes finished sessions. A session is finished when the reading is
// within the start threshold of its target, or when it times out; timed-out
// sessions that travelled far enough are still recorded as incomplete.
func (t *PerformanceTracker) Sweep(ctx context.Context) {
	t.mu.Lock()
	sessions := make([]*openSession, 0, len(t.open))
	for _, s := range t.open {
		sessions = append(sessions, s)
	}
	t.mu.Unlock()

	now := t.clock.Now()
	for _, s := range sessions {
		reading, err := t.transport.CurrentTemperature(ctx, s.entityID)
		if err != nil || reading == nil {
			if now.Sub(s.startedAt) > perfTimeout {
				t.discard(s.entityID, "unreadable")
			}
			continue
		}

		reached := math.Abs(s.target-*reading) < perfStartThreshold
		expired := now.Sub(s.startedAt) > perfTimeout
		if !reached && !expired {
			continue
		}
		t.close(ctx, s, now, *reading, reached)
	}
}

func (t *PerformanceTracker) close(ctx context.Context, s *openSession, now time.Time, reading float64, completed bool) {
	t.mu.Lock()
	// The session may have been replaced while we polled.
	if t.open[s.entityID] != s {
		t.mu.Unlock()
		return
	}
	delete(t.open, s.entityID)
	t.mu.Unlock()

	elapsed := now.Sub(s.startedAt)
	delta := reading - s.startTemp
	if elapsed < perfMinDuration || math.Abs(delta) < perfMinDelta {
		if t.log != nil {
			t.log.Debugw("performance_session_discarded",
				"entity", s.entityID, "elapsed", elapsed, "delta", delta)
		}
		return
	}

	session := models.PerformanceSession{
		EntityID:    s.entityID,
		GroupName:   s.groupName,
		Profile:     s.profile,
		SessionType: s.kind,
		StartedAt:   s.startedAt,
		EndedAt:     now,
		StartTemp:   s.startTemp,
		EndTemp:     reading,
		TargetTemp:  s.target,
		RatePerHour: delta / elapsed.Hours(),
		Completed:   completed,
	}
	if err := t.repo.Append(ctx, session); err != nil {
		if t.log != nil {
			t.log.Errorw("performance_session_save_failed", "entity", s.entityID, "err", err)
		}
		return
	}
	if t.log != nil {
		t.log.Infow("performance_session_recorded",
			"entity", s.entityID,
			"type", s.kind,
			"rate_per_hour", session.RatePerHour,
			"completed", completed,
		)
	}
}

func (t *PerformanceTracker) discard(entityID, reason string) {
	t.mu.Lock()
	delete(t.open, entityID)
	t.mu.Unlock()
	if t.log != nil {
		t.log.Debugw("performance_session_discarded", "entity", entityID, "reason", reason)
	}
}

// Sessions returns the entity's recorded sessions within the window.
func (t *PerformanceTracker) Sessions(ctx context.Context, entityID string, window time.Duration) ([]models.PerformanceSession, error) {
	since := t.clock.Now().Add(-window)
	return t.repo.List(ctx, entityID, since)
}
