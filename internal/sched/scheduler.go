package sched

import (
	"context"
	"time"

	"tickd/internal/eventbus"
	logx "tickd/pkg/logx"
)

// Scheduler is the engine facade. The host drives it: every tick it calls
// Eval with the instant it considers "now". The scheduler never reads the
// wall clock for trigger decisions.
type Scheduler struct {
	log logx.Logger
	bus eventbus.Bus

	reg       *registry
	overrides *overrideTable
	disp      *dispatcher
}

type Option func(*Scheduler)

func WithLogger(log logx.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithBus(bus eventbus.Bus) Option {
	return func(s *Scheduler) { s.bus = bus }
}

func New(functions FunctionRegistry, returners ReturnerRegistry, opts ...Option) *Scheduler {
	s := &Scheduler{
		log: logx.Nop(),
		bus: eventbus.Nop(),
		reg: newRegistry(),
	}
	for _, o := range opts {
		o(s)
	}
	s.overrides = newOverrideTable()
	s.disp = newDispatcher(s.reg, functions, returners, s.log, s.bus)
	return s
}

// Eval evaluates every enabled job against now and dispatches the due
// ones. Evaluation is cheap and synchronous; job bodies run in their own
// goroutines. Jobs are independent: one job's outcome never affects
// another's evaluation within the same tick.
func (s *Scheduler) Eval(now time.Time) {
	for _, e := range s.reg.snapshot() {
		s.evalJob(e, now)
	}
}

func (s *Scheduler) evalJob(e *jobEntry, now time.Time) {
	e.mu.Lock()
	name := e.spec.Name
	if !e.spec.Enabled {
		e.mu.Unlock()
		return
	}
	due := e.dueLocked(now)
	if due && e.spec.Trigger.cronSched != nil {
		// The occurrence is recognized now whether it runs, is skipped,
		// or is postponed; advance to the next cron instant either way.
		e.state.cronNext = e.spec.Trigger.cronSched.Next(now)
	}
	e.mu.Unlock()

	if !due {
		// A postponed occurrence fires exactly at its replacement instant.
		if anchor, ok := s.overrides.consumeRun(name, now); ok {
			s.log.Debug("postponed occurrence firing",
				logx.String("job", name), logx.Time("anchor", anchor), logx.Time("at", now))
			s.disp.dispatch(e, now)
		}
		return
	}

	if ov, ok := s.overrides.consume(name, now); ok {
		switch ov.kind {
		case overrideSkip:
			s.log.Info("skipping scheduled job", logx.String("job", name), logx.Time("at", now))
			s.bus.Publish(eventbus.Event{Type: "job.skipped", Time: now, Data: overrideEvent{Job: name, Anchor: now}})
		case overridePostpone:
			s.log.Info("postponing scheduled job",
				logx.String("job", name), logx.Time("at", now), logx.Time("until", ov.newTime))
			s.bus.Publish(eventbus.Event{Type: "job.postponed", Time: now,
				Data: overrideEvent{Job: name, Anchor: now, NewTime: ov.newTime}})
		}
		return
	}

	s.disp.dispatch(e, now)
}

// overrideEvent is the Data payload of override-related bus events.
type overrideEvent struct {
	Job     string    `json:"job"`
	Anchor  time.Time `json:"anchor"`
	NewTime time.Time `json:"new_time,omitempty"`
}

// AddJob validates and registers a job with zeroed runtime state.
func (s *Scheduler) AddJob(spec JobSpec) error {
	if err := s.reg.add(spec); err != nil {
		return err
	}
	s.log.Info("job added", logx.String("job", spec.Name))
	s.bus.Publish(eventbus.Event{Type: "job.added", Data: spec.Name})
	return nil
}

// UpdateJob replaces a job's spec, preserving its runtime state. The new
// spec takes effect on the next Eval call.
func (s *Scheduler) UpdateJob(name string, spec JobSpec) error {
	if err := s.reg.update(name, spec); err != nil {
		return err
	}
	s.log.Info("job updated", logx.String("job", name))
	s.bus.Publish(eventbus.Event{Type: "job.updated", Data: name})
	return nil
}

// DeleteJob removes a job, its runtime state, and any pending overrides.
// No-op for unknown names. An in-flight run is allowed to finish; its
// result is dropped.
func (s *Scheduler) DeleteJob(name string) {
	if !s.reg.delete(name) {
		return
	}
	s.overrides.drop(name)
	s.log.Info("job deleted", logx.String("job", name))
	s.bus.Publish(eventbus.Event{Type: "job.deleted", Data: name})
}

func (s *Scheduler) EnableJob(name string) {
	if s.reg.setEnabled(name, true) {
		s.log.Info("job enabled", logx.String("job", name))
		s.bus.Publish(eventbus.Event{Type: "job.enabled", Data: name})
	}
}

func (s *Scheduler) DisableJob(name string) {
	if s.reg.setEnabled(name, false) {
		s.log.Info("job disabled", logx.String("job", name))
		s.bus.Publish(eventbus.Event{Type: "job.disabled", Data: name})
	}
}

// JobStatus returns a snapshot of the job's runtime state.
func (s *Scheduler) JobStatus(name string) (JobStatus, bool) {
	return s.reg.status(name)
}

// SkipJob suppresses the single occurrence of the job anchored at the
// given instant. Unknown job names are accepted; the override just never
// matches.
func (s *Scheduler) SkipJob(name string, at time.Time) {
	s.overrides.setSkip(name, at)
	s.log.Debug("skip set", logx.String("job", name), logx.Time("at", at))
	s.bus.Publish(eventbus.Event{Type: "override.skip.set", Data: overrideEvent{Job: name, Anchor: at}})
}

// PostponeJob moves the single occurrence anchored at the given instant to
// newTime. The replacement fires on the Eval call supplied with exactly
// that instant.
func (s *Scheduler) PostponeJob(name string, at, newTime time.Time) {
	s.overrides.setPostpone(name, at, newTime)
	s.log.Debug("postpone set",
		logx.String("job", name), logx.Time("at", at), logx.Time("until", newTime))
	s.bus.Publish(eventbus.Event{Type: "override.postpone.set",
		Data: overrideEvent{Job: name, Anchor: at, NewTime: newTime}})
}

// Drain waits for in-flight job executions to finish. Used at shutdown.
func (s *Scheduler) Drain(ctx context.Context) error {
	return s.disp.drain(ctx)
}
