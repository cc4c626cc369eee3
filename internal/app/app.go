// Package app wires the agent together: config, logging, storage, the
// scheduler, and the supervised background loops.
package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"tickd/internal/config"
	"tickd/internal/eventbus"
	"tickd/internal/functions"
	"tickd/internal/returners"
	"tickd/internal/runtime/supervisor"
	"tickd/internal/sched"
	"tickd/internal/storage"
	logx "tickd/pkg/logx"
	"tickd/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	sd    *systemd.Notifier

	scheduler *sched.Scheduler

	tick  time.Duration
	drain time.Duration
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	tick, err := config.ParseDurationOrDefault("agent.tick_interval", cfg.Agent.TickInterval, time.Second)
	if err != nil {
		return nil, err
	}
	drain, err := config.ParseDurationOrDefault("agent.drain_timeout", cfg.Agent.DrainTimeout, 30*time.Second)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	fns := functions.NewRegistry()
	functions.RegisterBuiltins(fns, functions.Deps{
		Log:   log.With(logx.String("comp", "functions")),
		Store: store,
	})

	rets := returners.NewRegistry()
	returners.RegisterBuiltins(rets, log.With(logx.String("comp", "returners")), bus, store)

	scheduler := sched.New(fns, rets,
		sched.WithLogger(log.With(logx.String("comp", "sched"))),
		sched.WithBus(bus),
	)

	return &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       bus,
		store:     store,
		sd:        systemd.NewNotifier(log.With(logx.String("comp", "systemd"))),
		scheduler: scheduler,
		tick:      tick,
		drain:     drain,
	}, nil
}

// Scheduler exposes the engine for diagnostics.
func (a *App) Scheduler() *sched.Scheduler { return a.scheduler }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	// Initial schedule: a sequence of adds. Config was validated in New,
	// so failures here are programming errors worth failing loudly on.
	cfg := a.cfgm.Get()
	for name, job := range cfg.Jobs {
		spec, err := job.Spec(name)
		if err != nil {
			return err
		}
		if err := a.scheduler.AddJob(spec); err != nil {
			return err
		}
	}
	a.log.Info("schedule loaded", logx.Int("jobs", len(cfg.Jobs)))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	// The tick loop. The engine never reads the wall clock; this loop is
	// the single place "now" enters the system.
	a.sup.GoRestart("sched.tick", func(ctx context.Context) error {
		t := time.NewTicker(a.tick)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-t.C:
				a.scheduler.Eval(now)
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	// Event log for observability/debug (components can also subscribe themselves).
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				// Debug-level to avoid noise on busy schedules.
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	a.sup.Go("systemd.watchdog", a.sd.RunWatchdog)
	a.sd.Ready()

	a.log.Info("agent started",
		logx.Duration("tick_interval", a.tick), logx.Int("jobs", len(cfg.Jobs)))
	return nil
}

// applyConfig applies a validated reload: logging first, then the per-job
// diff through the scheduler API.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	for _, s := range sections {
		if s == "storage" {
			a.log.Warn("storage config changed; restart required for changes to take effect")
		}
		if s == "agent" {
			a.log.Warn("agent config changed; restart required for changes to take effect")
		}
	}

	a.logs.Apply(mapLogConfig(newCfg))

	d := config.DiffJobs(oldCfg, newCfg)
	for _, name := range d.Removed {
		a.scheduler.DeleteJob(name)
	}
	for _, name := range d.Added {
		spec, err := newCfg.Jobs[name].Spec(name)
		if err != nil {
			a.log.Warn("job config rejected", logx.String("job", name), logx.Err(err))
			continue
		}
		if err := a.scheduler.AddJob(spec); err != nil {
			a.log.Warn("job add failed", logx.String("job", name), logx.Err(err))
		}
	}
	for _, name := range d.Updated {
		spec, err := newCfg.Jobs[name].Spec(name)
		if err != nil {
			a.log.Warn("job config rejected", logx.String("job", name), logx.Err(err))
			continue
		}
		if err := a.scheduler.UpdateJob(name, spec); err != nil {
			a.log.Warn("job update failed", logx.String("job", name), logx.Err(err))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context) error {
	a.sd.Stopping()
	if a.sup != nil {
		// Stop ticking and watching before draining, so no new runs start.
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			a.log.Warn("supervisor stop", logx.Err(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), a.drain)
	defer cancel()
	if err := a.scheduler.Drain(drainCtx); err != nil {
		a.log.Warn("shutdown drain timed out; abandoning in-flight runs", logx.Err(err))
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close", logx.Err(err))
		}
	}
	a.log.Info("agent stopped")
	return a.logs.Close()
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	s := cfg.Storage
	if s == nil || strings.TrimSpace(s.Driver) == "" || strings.EqualFold(s.Driver, "none") {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", s.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      strings.TrimSpace(s.Driver),
		Path:        strings.TrimSpace(s.Path),
		BusyTimeout: busy,
	}, true, nil
}
