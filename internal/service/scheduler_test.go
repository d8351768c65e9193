package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"climate_scheduler/internal/climate"
	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"
)

// ---- In-memory stubs ----

// memScheduleRepo round-trips the model through JSON so stored state never
// aliases the caller's maps, matching the real document store.
type memScheduleRepo struct {
	mu  sync.Mutex
	doc []byte
}

func newMemScheduleRepo(t *testing.T, m models.ScheduleModel) *memScheduleRepo {
	t.Helper()
	doc, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	return &memScheduleRepo{doc: doc}
}

func (r *memScheduleRepo) Load(ctx context.Context) (models.ScheduleModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc == nil {
		return models.ScheduleModel{}, nil
	}
	var m models.ScheduleModel
	if err := json.Unmarshal(r.doc, &m); err != nil {
		return models.ScheduleModel{}, err
	}
	return m, nil
}

func (r *memScheduleRepo) Save(ctx context.Context, m models.ScheduleModel) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.doc = doc
	r.mu.Unlock()
	return nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []models.AdvanceHistoryEntry
}

func (r *memHistoryRepo) Append(ctx context.Context, e models.AdvanceHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memHistoryRepo) CloseLatest(ctx context.Context, groupName string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].GroupName == groupName && r.entries[i].CancelledAt == nil {
			t := at
			r.entries[i].CancelledAt = &t
			return nil
		}
	}
	return nil
}

func (r *memHistoryRepo) List(ctx context.Context, groupName string, since time.Time) ([]models.AdvanceHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AdvanceHistoryEntry
	for _, e := range r.entries {
		if e.GroupName == groupName && !e.ActivatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memHistoryRepo) Clear(ctx context.Context, groupName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.GroupName != groupName {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

type appliedCall struct {
	entityID string
	cmd      climate.CommandSet
}

// fakeTransport records applies and serves canned temperature readings.
type fakeTransport struct {
	mu       sync.Mutex
	readings map[string]*float64
	readErr  map[string]error
	applyErr map[string]error
	applied  []appliedCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		readings: make(map[string]*float64),
		readErr:  make(map[string]error),
		applyErr: make(map[string]error),
	}
}

func (f *fakeTransport) setReading(entityID string, temp float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := temp
	f.readings[entityID] = &t
}

func (f *fakeTransport) CurrentTemperature(ctx context.Context, entityID string) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.readErr[entityID]; err != nil {
		return nil, err
	}
	return f.readings[entityID], nil
}

func (f *fakeTransport) Apply(ctx context.Context, entityID string, cmd climate.CommandSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.applyErr[entityID]; err != nil {
		return err
	}
	f.applied = append(f.applied, appliedCall{entityID: entityID, cmd: cmd})
	return nil
}

func (f *fakeTransport) appliedCalls() []appliedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]appliedCall, len(f.applied))
	copy(out, f.applied)
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = nil
}

type fakeWorkdays struct {
	workday bool
	err     error
}

func (f *fakeWorkdays) IsWorkday(ctx context.Context, date string) (bool, error) {
	return f.workday, f.err
}

type recordSink struct {
	mu     sync.Mutex
	events []models.ScheduleEvent
}

func (s *recordSink) Emit(ctx context.Context, name string, e models.ScheduleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordSink) all() []models.ScheduleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScheduleEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordSink) reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// fakeClock is a movable clock for driving the engine through time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// ---- Harness ----

type engineDeps struct {
	schedules *memScheduleRepo
	history   *memHistoryRepo
	transport *fakeTransport
	sink      *recordSink
	clock     *fakeClock
}

func newTestEngine(t *testing.T, m models.ScheduleModel, now time.Time) (*SchedulerService, *engineDeps) {
	t.Helper()
	deps := &engineDeps{
		schedules: newMemScheduleRepo(t, m),
		history:   &memHistoryRepo{},
		transport: newFakeTransport(),
		sink:      &recordSink{},
		clock:     &fakeClock{t: now},
	}
	log := logger.Get(logger.ErrorLevel)
	cfg := Config{MinTemp: 7, MaxTemp: 28}
	s := NewSchedulerService(
		deps.schedules, deps.history, deps.transport, nil,
		deps.sink, nil, deps.clock, &sync.RWMutex{}, log, cfg,
	)
	return s, deps
}

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

// basicModel is one group with one entity on an all-days profile:
// 06:00 -> 21°C, 22:00 -> 17°C.
func basicModel() models.ScheduleModel {
	return models.ScheduleModel{
		Groups: map[string]*models.Group{
			"living": {Entities: []string{"climate.living"}, Enabled: true, ActiveProfile: "Default"},
		},
		Profiles: map[string]*models.Profile{
			"Default": {
				Mode: models.ModeAllDays,
				Days: models.DaySchedule{
					models.DayKeyAllDays: {
						{Time: 6 * 60, Temperature: fp(21)},
						{Time: 22 * 60, Temperature: fp(17)},
					},
				},
			},
		},
		Settings: models.Settings{MinTemp: 7, MaxTemp: 28},
	}
}

// mustParse builds an instant in UTC from date components.
func at(hour, min int) time.Time {
	// 2026-03-11 is a Wednesday.
	return time.Date(2026, 3, 11, hour, min, 0, 0, time.UTC)
}

// ---- Tests ----

func TestResolveGroup_FirstRunAppliesActiveNode(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 18)

	if err := s.ResolveGroup(context.Background(), "living"); err != nil {
		t.Fatalf("ResolveGroup() error = %v", err)
	}

	calls := deps.transport.appliedCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 apply, got %d", len(calls))
	}
	cmd := calls[0].cmd
	if cmd.Temperature.State != climate.FieldSet || cmd.Temperature.Value != 21 {
		t.Fatalf("expected 21°C assigned, got %+v", cmd.Temperature)
	}

	events := deps.sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Trigger != models.TriggerScheduled || events[0].DayKey != models.DayKeyAllDays {
		t.Fatalf("unexpected event: %+v", events[0])
	}
	if events[0].PreviousNode != nil {
		t.Fatalf("first transition must not carry a previous node: %+v", events[0].PreviousNode)
	}
}

func TestResolveGroup_SameNodeIsIdempotent(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 18)

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	deps.transport.reset()
	deps.sink.reset()

	// Several more ticks inside the same slot.
	for _, min := range []int{5, 30, 90} {
		deps.clock.set(at(10, min))
		if err := s.ResolveGroup(ctx, "living"); err != nil {
			t.Fatalf("resolve at +%dm: %v", min, err)
		}
	}

	if calls := deps.transport.appliedCalls(); len(calls) != 0 {
		t.Fatalf("no re-apply expected within a slot, got %d", len(calls))
	}
	if events := deps.sink.all(); len(events) != 0 {
		t.Fatalf("no events expected within a slot, got %d", len(events))
	}
}

func TestResolveGroup_TransitionCarriesPreviousNode(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 20)

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	deps.sink.reset()
	deps.transport.reset()

	deps.clock.set(at(22, 0))
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	events := deps.sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 transition event, got %d", len(events))
	}
	e := events[0]
	if e.Node.Temperature == nil || *e.Node.Temperature != 17 {
		t.Fatalf("expected 17°C node, got %+v", e.Node)
	}
	if e.PreviousNode == nil || e.PreviousNode.Temperature == nil || *e.PreviousNode.Temperature != 21 {
		t.Fatalf("expected previous 21°C node, got %+v", e.PreviousNode)
	}
}

func TestResolveGroup_BeforeFirstNodeUsesPreviousDayLastNode(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(3, 0))
	deps.transport.setReading("climate.living", 18)

	if err := s.ResolveGroup(context.Background(), "living"); err != nil {
		t.Fatalf("ResolveGroup() error = %v", err)
	}

	calls := deps.transport.appliedCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 apply, got %d", len(calls))
	}
	if calls[0].cmd.Temperature.Value != 17 {
		t.Fatalf("03:00 should carry yesterday's 22:00 node (17°C), got %v", calls[0].cmd.Temperature.Value)
	}
}

func TestResolveGroup_EmptyScheduleResolvesInactive(t *testing.T) {
	m := basicModel()
	m.Profiles["Default"].Days = models.DaySchedule{}
	s, deps := newTestEngine(t, m, at(10, 0))
	deps.transport.setReading("climate.living", 18)

	if err := s.ResolveGroup(context.Background(), "living"); err != nil {
		t.Fatalf("ResolveGroup() error = %v", err)
	}
	if calls := deps.transport.appliedCalls(); len(calls) != 0 {
		t.Fatalf("no apply expected for an empty schedule, got %d", len(calls))
	}
}

func TestResolveGroup_DisabledAndIgnoredGroupsAreSkipped(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(g *models.Group)
	}{
		{"disabled", func(g *models.Group) { g.Enabled = false }},
		{"ignored", func(g *models.Group) { g.Ignored = true }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := basicModel()
			tc.mutate(m.Groups["living"])
			s, deps := newTestEngine(t, m, at(10, 0))
			deps.transport.setReading("climate.living", 18)

			if err := s.ResolveGroup(context.Background(), "living"); err != nil {
				t.Fatalf("ResolveGroup() error = %v", err)
			}
			if calls := deps.transport.appliedCalls(); len(calls) != 0 {
				t.Fatalf("skipped group must not apply, got %d calls", len(calls))
			}
		})
	}
}

func TestResolveGroup_EditedActiveNodeReappliesWithoutEvent(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 18)

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	deps.transport.reset()
	deps.sink.reset()

	// Edit the active node's temperature in place; the node key (day@time)
	// stays the same, only the signature changes.
	m, err := deps.schedules.Load(ctx)
	if err != nil {
		t.Fatalf("load model: %v", err)
	}
	m.Profiles["Default"].Days[models.DayKeyAllDays][0].Temperature = fp(23)
	if err := deps.schedules.Save(ctx, m); err != nil {
		t.Fatalf("save model: %v", err)
	}

	deps.clock.set(at(10, 5))
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	calls := deps.transport.appliedCalls()
	if len(calls) != 1 || calls[0].cmd.Temperature.Value != 23 {
		t.Fatalf("edited node must re-apply with 23°C, got %+v", calls)
	}
	if events := deps.sink.all(); len(events) != 0 {
		t.Fatalf("edit re-apply must not emit events, got %d", len(events))
	}
}

func TestResolveGroup_AllEntitiesFailedRetriesNextTick(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 18)
	deps.transport.applyErr["climate.living"] = errors.New("device offline")

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if calls := deps.transport.appliedCalls(); len(calls) != 0 {
		t.Fatalf("failed apply should not be recorded, got %d", len(calls))
	}

	// Device comes back; the same node applies on the next tick.
	deps.transport.mu.Lock()
	delete(deps.transport.applyErr, "climate.living")
	deps.transport.mu.Unlock()

	deps.clock.set(at(10, 1))
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("retry resolve: %v", err)
	}
	calls := deps.transport.appliedCalls()
	if len(calls) != 1 || calls[0].cmd.Temperature.Value != 21 {
		t.Fatalf("expected retry apply of 21°C, got %+v", calls)
	}
}

func TestResolveGroup_PartialEntityFailureStillCounts(t *testing.T) {
	m := basicModel()
	m.Groups["living"].Entities = []string{"climate.a", "climate.b"}
	s, deps := newTestEngine(t, m, at(10, 0))
	deps.transport.setReading("climate.a", 18)
	deps.transport.setReading("climate.b", 18)
	deps.transport.applyErr["climate.b"] = errors.New("device offline")

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	calls := deps.transport.appliedCalls()
	if len(calls) != 1 || calls[0].entityID != "climate.a" {
		t.Fatalf("expected one successful apply to climate.a, got %+v", calls)
	}

	// One success is enough: the node counts as applied, no group-wide retry.
	deps.transport.reset()
	deps.clock.set(at(10, 1))
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if calls := deps.transport.appliedCalls(); len(calls) != 0 {
		t.Fatalf("no retry expected after partial success, got %+v", calls)
	}
}

func TestResolveGroup_VirtualGroupEmitsWithoutCommands(t *testing.T) {
	m := basicModel()
	m.Groups["living"].Entities = nil
	s, deps := newTestEngine(t, m, at(10, 0))

	if err := s.ResolveGroup(context.Background(), "living"); err != nil {
		t.Fatalf("ResolveGroup() error = %v", err)
	}
	if calls := deps.transport.appliedCalls(); len(calls) != 0 {
		t.Fatalf("virtual group must not issue commands, got %d", len(calls))
	}
	events := deps.sink.all()
	if len(events) != 1 || events[0].EntityID != nil {
		t.Fatalf("expected one group-level event with nil entity, got %+v", events)
	}
}

func TestSyncAll_ForcesReapplyOfUnchangedNode(t *testing.T) {
	s, deps := newTestEngine(t, basicModel(), at(10, 0))
	deps.transport.setReading("climate.living", 18)

	ctx := context.Background()
	if err := s.ResolveGroup(ctx, "living"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	deps.transport.reset()

	s.SyncAll(ctx)

	calls := deps.transport.appliedCalls()
	if len(calls) != 1 || calls[0].cmd.Temperature.Value != 21 {
		t.Fatalf("sync must re-apply the active node, got %+v", calls)
	}
}

func TestNodeSignature_ClampedValuesCompareEqual(t *testing.T) {
	settings := models.Settings{MinTemp: 7, MaxTemp: 28}
	hot := models.Node{Time: 600, Temperature: fp(35)}
	max := models.Node{Time: 600, Temperature: fp(28)}
	if nodeSignature(&hot, settings) != nodeSignature(&max, settings) {
		t.Fatalf("35°C clamps to 28°C, signatures must match")
	}
	other := models.Node{Time: 600, Temperature: fp(27)}
	if nodeSignature(&max, settings) == nodeSignature(&other, settings) {
		t.Fatalf("distinct temperatures must produce distinct signatures")
	}
}
