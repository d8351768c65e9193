package service

import (
	"context"
	"sync"
	"time"

	"climate_scheduler/internal/climate"
	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Scheduler is the resolution and application engine: it decides which node
// is active for each group, applies it to devices and handles advance
// overrides. All operations are synchronous; device I/O happens inside the
// apply step with per-entity isolation.
type Scheduler interface {
	ResolveAll(ctx context.Context)
	ResolveGroup(ctx context.Context, groupName string) error
	Advance(ctx context.Context, groupName string) (models.AdvanceOverride, error)
	CancelAdvance(ctx context.Context, groupName string) error
	OverrideStatus(groupName string) *models.AdvanceOverride
	Summary(ctx context.Context, groupName string) (models.ScheduleSummary, error)
	History(ctx context.Context, groupName string, window time.Duration) ([]models.AdvanceHistoryEntry, error)
	ClearHistory(ctx context.Context, groupName string) error
	SyncAll(ctx context.Context)
}

// Management owns all writes to the schedule data model: groups, profiles
// and per-day schedules. Validation happens here, at the write boundary, so
// the resolution path never rejects a stored model.
type Management interface {
	Model(ctx context.Context) (models.ScheduleModel, error)
	CreateGroup(ctx context.Context, name string, entities []string) error
	DeleteGroup(ctx context.Context, name string) error
	RenameGroup(ctx context.Context, oldName, newName string) error
	SetGroupEnabled(ctx context.Context, name string, enabled bool) error
	SetGroupIgnored(ctx context.Context, name string, ignored bool) error
	SetGroupEntities(ctx context.Context, name string, entities []string) error
	SetActiveProfile(ctx context.Context, groupName, profileName string) error
	CreateProfile(ctx context.Context, name string, mode models.ScheduleMode) error
	DeleteProfile(ctx context.Context, name string) error
	RenameProfile(ctx context.Context, oldName, newName string) error
	SetProfileSchedule(ctx context.Context, name string, mode models.ScheduleMode, days models.DaySchedule) error
	SetSettings(ctx context.Context, settings models.Settings) error
}

// EventLog exposes the append-only transition event log.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ScheduleEvent, error)
}

// Performance exposes recorded heating/cooling sessions.
type Performance interface {
	Sessions(ctx context.Context, entityID string, window time.Duration) ([]models.PerformanceSession, error)
}

// Runner drives periodic resolution until its context is cancelled.
type Runner interface {
	Run(ctx context.Context)
}

// Config carries the engine settings read from the application config.
type Config struct {
	MinTemp    float64
	MaxTemp    float64
	TickSpec   string // cron spec for the resolution tick, e.g. "@every 1m"
	SigningKey string
}

// Service aggregates all sub-services.
type Service struct {
	Scheduler
	Management
	EventLog
	Performance
	Authorization
	Runner
}

// NewService wires the repository layer, device transport and event sinks
// into concrete services. The workday calendar and extra sinks may be nil.
func NewService(
	repos *repository.Repository,
	transport climate.Transport,
	workdays climate.WorkdayCalendar,
	extraSink EventSink,
	clock Clock,
	log *logger.Logger,
	cfg Config,
) *Service {
	// Shared model lock: resolution reads under RLock, every write
	// (schedule edit, bookkeeping commit) takes the exclusive lock.
	modelMu := &sync.RWMutex{}

	sinks := MultiSink{NewEventLogSink(repos.Events, log)}
	if extraSink != nil {
		sinks = append(sinks, extraSink)
	}

	perf := NewPerformanceTracker(repos.Performance, transport, clock, log)
	sched := NewSchedulerService(repos.Schedule, repos.History, transport, workdays, sinks, perf, clock, modelMu, log, cfg)

	return &Service{
		Scheduler:     sched,
		Management:    NewManagementService(repos.Schedule, modelMu, log, cfg),
		EventLog:      NewEventLogService(repos.Events),
		Performance:   perf,
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey),
		Runner:        NewCronRunner(sched, perf, cfg.TickSpec, log),
	}
}
