package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"climate_scheduler/internal/climate"
	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"
)

// Domain errors surfaced by the engine.
var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoUpcomingNode  = errors.New("schedule has no upcoming node")
)

// SchedulerService is the resolution and application engine. Resolution is
// pure arithmetic over an in-memory snapshot of the model; device I/O is
// confined to the apply step. Groups resolve independently and are
// serialized per group, so a periodic tick and an on-demand call for the
// same group can never double-fire a transition.
type SchedulerService struct {
	schedules repository.ScheduleRepo
	history   repository.HistoryRepo
	transport climate.Transport
	workdays  climate.WorkdayCalendar
	sink      EventSink
	perf      *PerformanceTracker
	clock     Clock
	modelMu   *sync.RWMutex
	log       *logger.Logger
	cfg       Config

	mu        sync.Mutex
	groupMu   map[string]*sync.Mutex
	overrides map[string]*models.AdvanceOverride
	firstDone map[string]bool
	lastNodes map[string]models.Node
}

func NewSchedulerService(
	schedules repository.ScheduleRepo,
	history repository.HistoryRepo,
	transport climate.Transport,
	workdays climate.WorkdayCalendar,
	sink EventSink,
	perf *PerformanceTracker,
	clock Clock,
	modelMu *sync.RWMutex,
	log *logger.Logger,
	cfg Config,
) *SchedulerService {
	return &SchedulerService{
		schedules: schedules,
		history:   history,
		transport: transport,
		workdays:  workdays,
		sink:      sink,
		perf:      perf,
		clock:     clock,
		modelMu:   modelMu,
		log:       log,
		cfg:       cfg,
		groupMu:   make(map[string]*sync.Mutex),
		overrides: make(map[string]*models.AdvanceOverride),
		firstDone: make(map[string]bool),
		lastNodes: make(map[string]models.Node),
	}
}

var _ Scheduler = (*SchedulerService)(nil)

// lockGroup returns the mutex serializing resolution for one group.
func (s *SchedulerService) lockGroup(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.groupMu[name]
	if !ok {
		mu = &sync.Mutex{}
		s.groupMu[name] = mu
	}
	return mu
}

func (s *SchedulerService) loadModel(ctx context.Context) (models.ScheduleModel, error) {
	s.modelMu.RLock()
	defer s.modelMu.RUnlock()
	m, err := s.schedules.Load(ctx)
	if err != nil {
		return models.ScheduleModel{}, err
	}
	m.EnsureDefaults(s.cfg.MinTemp, s.cfg.MaxTemp)
	return m, nil
}

// ResolveAll runs one resolution cycle over every group. Failures are
// per-group: one group's problem never blocks the others.
func (s *SchedulerService) ResolveAll(ctx context.Context) {
	model, err := s.loadModel(ctx)
	if err != nil {
		s.log.Errorw("resolve_cycle_load_failed", "err", err)
		return
	}

	names := make([]string, 0, len(model.Groups))
	for name := range model.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.resolveOne(ctx, &model, name); err != nil {
			s.log.Errorw("resolve_group_failed", "group", name, "err", err)
		}
	}
}

// ResolveGroup resolves a single group on demand, typically right after a
// write to the data model so the change takes effect without waiting for
// the next tick.
func (s *SchedulerService) ResolveGroup(ctx context.Context, groupName string) error {
	model, err := s.loadModel(ctx)
	if err != nil {
		return err
	}
	if _, ok := model.Groups[groupName]; !ok {
		return ErrGroupNotFound
	}
	return s.resolveOne(ctx, &model, groupName)
}

// resolveOne resolves and, when needed, applies the effective node for one
// group. It owns the group's transition bookkeeping.
func (s *SchedulerService) resolveOne(ctx context.Context, model *models.ScheduleModel, name string) error {
	mu := s.lockGroup(name)
	mu.Lock()
	defer mu.Unlock()

	g := model.Groups[name]
	if g == nil {
		return ErrGroupNotFound
	}
	if !g.Enabled || g.Ignored {
		return nil
	}
	p := model.Profiles[g.ActiveProfile]
	if p == nil {
		s.log.Warnw("active_profile_missing", "group", name, "profile", g.ActiveProfile)
		return nil
	}

	now := s.clock.Now()
	res := s.resolveProfile(ctx, p, now)

	trigger := models.TriggerScheduled
	effective := res.Active
	nodeKey := ""

	s.mu.Lock()
	ov := s.overrides[name]
	s.mu.Unlock()

	if ov != nil && ov.CancelledAt == nil {
		if ov.Active(now) {
			// While overridden the target substitutes the active node;
			// "next" keeps its natural meaning.
			effective = &ov.TargetNode
			trigger = models.TriggerManualAdvance
			nodeKey = advanceKey(ov)
		} else {
			// The schedule caught up to the override: natural
			// supersession, logged identically to a cancel.
			s.dropOverride(ctx, name, now, "superseded")
		}
	}

	if effective == nil {
		// No nodes today or yesterday: resolve to "inactive".
		return nil
	}
	if nodeKey == "" {
		nodeKey = res.DayKey + "@" + effective.Time.String()
	}

	sig := nodeSignature(effective, model.Settings)
	s.mu.Lock()
	first := !s.firstDone[name]
	last, hasLast := s.lastNodes[name]
	s.mu.Unlock()
	transition := first || nodeKey != g.LastAppliedNodeKey
	// Same node but different fields: the active node was edited. Settings
	// must re-apply immediately, but no domain event fires for this.
	editReapply := !transition && sig != g.LastAppliedSignature

	if !transition && !editReapply {
		return nil
	}

	var prev *models.Node
	if transition && trigger == models.TriggerScheduled && hasLast {
		cp := last
		prev = &cp
	}

	applied := s.applyGroup(ctx, name, g, effective, res.DayKey, trigger, prev, transition, model.Settings)
	if !applied {
		// Every entity failed: keep the old bookkeeping so the next tick
		// retries the whole node.
		return nil
	}

	s.mu.Lock()
	s.firstDone[name] = true
	s.lastNodes[name] = *effective
	s.mu.Unlock()
	return s.commitBookkeeping(ctx, name, nodeKey, sig)
}

// commitBookkeeping persists the group's last-applied node key/signature
// against a freshly loaded model, so concurrent schedule edits are never
// clobbered by the resolution cycle.
func (s *SchedulerService) commitBookkeeping(ctx context.Context, name, nodeKey, sig string) error {
	s.modelMu.Lock()
	defer s.modelMu.Unlock()

	fresh, err := s.schedules.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload model for bookkeeping: %w", err)
	}
	fresh.EnsureDefaults(s.cfg.MinTemp, s.cfg.MaxTemp)
	g, ok := fresh.Groups[name]
	if !ok {
		// Group deleted mid-cycle; nothing to record.
		return nil
	}
	g.LastAppliedNodeKey = nodeKey
	g.LastAppliedSignature = sig
	return s.schedules.Save(ctx, fresh)
}

// SyncAll clears all transition bookkeeping and re-resolves every group,
// forcing settings to re-apply.
func (s *SchedulerService) SyncAll(ctx context.Context) {
	s.mu.Lock()
	s.firstDone = make(map[string]bool)
	s.mu.Unlock()
	s.log.Infow("sync_all_forced")
	s.ResolveAll(ctx)
}

// OverrideStatus reports the group's current advance override, or nil.
func (s *SchedulerService) OverrideStatus(groupName string) *models.AdvanceOverride {
	s.mu.Lock()
	defer s.mu.Unlock()
	ov := s.overrides[groupName]
	if ov == nil {
		return nil
	}
	cp := *ov
	return &cp
}

// History returns the group's advance history within the given window.
func (s *SchedulerService) History(ctx context.Context, groupName string, window time.Duration) ([]models.AdvanceHistoryEntry, error) {
	since := s.clock.Now().Add(-window)
	return s.history.List(ctx, groupName, since)
}

// ClearHistory deletes the group's advance history. Display data only;
// resolution is unaffected.
func (s *SchedulerService) ClearHistory(ctx context.Context, groupName string) error {
	return s.history.Clear(ctx, groupName)
}

// dropOverride closes the newest open history entry and removes the
// in-memory override. Cancel and supersession share this path.
func (s *SchedulerService) dropOverride(ctx context.Context, name string, at time.Time, reason string) {
	if err := s.history.CloseLatest(ctx, name, at); err != nil {
		s.log.Errorw("advance_history_close_failed", "group", name, "err", err)
	}
	s.mu.Lock()
	delete(s.overrides, name)
	s.mu.Unlock()
	s.log.Infow("advance_override_closed", "group", name, "reason", reason)
}

// advanceKey is the bookkeeping key while an override is active. Each
// activation gets its own key so re-advancing is a fresh transition.
func advanceKey(ov *models.AdvanceOverride) string {
	return "advance@" + ov.ActivatedAt.UTC().Format(time.RFC3339)
}

// nodeSignature fingerprints the fields a node would apply, with the
// temperature already clamped. Clamping before fingerprinting prevents an
// out-of-bounds node from re-applying forever because its raw value never
// matches the clamped output.
func nodeSignature(n *models.Node, settings models.Settings) string {
	type sig struct {
		Temp     *float64 `json:"temp"`
		Hvac     *string  `json:"hvac"`
		Fan      *string  `json:"fan"`
		Swing    *string  `json:"swing"`
		Preset   *string  `json:"preset"`
		PayloadA *float64 `json:"a"`
		PayloadB *float64 `json:"b"`
		PayloadC *float64 `json:"c"`
	}
	v := sig{
		Hvac: n.HvacMode, Fan: n.FanMode, Swing: n.SwingMode, Preset: n.PresetMode,
		PayloadA: n.PayloadA, PayloadB: n.PayloadB, PayloadC: n.PayloadC,
	}
	if n.Temperature != nil {
		t := clampTemp(*n.Temperature, settings)
		v.Temp = &t
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func clampTemp(t float64, settings models.Settings) float64 {
	if settings.MinTemp != 0 || settings.MaxTemp != 0 {
		if t < settings.MinTemp {
			return settings.MinTemp
		}
		if t > settings.MaxTemp {
			return settings.MaxTemp
		}
	}
	return t
}
