package service

import (
	"context"

	"climate_scheduler/internal/logger"

	"github.com/robfig/cron/v3"
)

const defaultTickSpec = "@every 1m"

// CronRunner drives the periodic resolution tick. Each tick resolves every
// group and sweeps open performance sessions; the engine's idempotent
// transition detection means tick frequency only bounds latency, never
// causes duplicate applies.
type CronRunner struct {
	sched *SchedulerService
	perf  *PerformanceTracker
	spec  string
	log   *logger.Logger
}

func NewCronRunner(sched *SchedulerService, perf *PerformanceTracker, tickSpec string, log *logger.Logger) *CronRunner {
	if tickSpec == "" {
		tickSpec = defaultTickSpec
	}
	return &CronRunner{sched: sched, perf: perf, spec: tickSpec, log: log}
}

var _ Runner = (*CronRunner)(nil)

// Run starts the tick and blocks until the context is cancelled. The first
// resolution cycle runs immediately, before the schedule takes over.
func (r *CronRunner) Run(ctx context.Context) {
	r.tick(ctx)

	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.tick(ctx) }); err != nil {
		r.log.Errorw("tick_schedule_invalid", "spec", r.spec, "err", err)
		return
	}
	c.Start()
	r.log.Infow("resolution_tick_started", "spec", r.spec)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	r.log.Infow("resolution_tick_stopped")
}

func (r *CronRunner) tick(ctx context.Context) {
	r.sched.ResolveAll(ctx)
	if r.perf != nil {
		r.perf.Sweep(ctx)
	}
}
