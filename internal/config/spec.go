package config

import (
	"fmt"
	"time"

	"tickd/internal/sched"
)

// Spec converts a job's config block into an engine spec. It surfaces
// config-shape errors (conflicting interval units, unparseable times);
// the engine re-validates semantics on AddJob/UpdateJob.
func (j JobConfig) Spec(name string) (sched.JobSpec, error) {
	trigger, err := j.trigger()
	if err != nil {
		return sched.JobSpec{}, fmt.Errorf("job %q: %w", name, err)
	}

	enabled := true
	if j.Enabled != nil {
		enabled = *j.Enabled
	}
	return sched.JobSpec{
		Name:          name,
		Trigger:       trigger,
		Function:      j.Function,
		Args:          j.Args,
		Kwargs:        j.Kwargs,
		Enabled:       enabled,
		MaxConcurrent: j.MaxConcurrent,
		Returners:     j.Returners,
	}, nil
}

func (j JobConfig) trigger() (sched.Trigger, error) {
	var t sched.Trigger

	type unitField struct {
		unit  sched.Unit
		count int
	}
	var set []unitField
	for _, f := range []unitField{
		{sched.Seconds, j.Seconds},
		{sched.Minutes, j.Minutes},
		{sched.Hours, j.Hours},
		{sched.Days, j.Days},
	} {
		if f.count != 0 {
			set = append(set, f)
		}
	}
	if len(set) > 1 {
		return t, fmt.Errorf("multiple interval units set")
	}
	if len(set) == 1 {
		iv := &sched.IntervalTrigger{Unit: set[0].unit, Count: set[0].count}
		if r := j.SkipDuringRange; r != nil {
			start, err := sched.ParseDayTime(r.Start)
			if err != nil {
				return t, fmt.Errorf("skip_during_range.start: %w", err)
			}
			end, err := sched.ParseDayTime(r.End)
			if err != nil {
				return t, fmt.Errorf("skip_during_range.end: %w", err)
			}
			iv.SkipDuring = &sched.Window{Start: start, End: end}
		}
		t.Interval = iv
	} else if j.SkipDuringRange != nil {
		return t, fmt.Errorf("skip_during_range requires an interval trigger")
	}

	if len(j.When) > 0 {
		at := make([]time.Time, 0, len(j.When))
		for _, s := range j.When {
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return t, fmt.Errorf("when %q: %w", s, err)
			}
			at = append(at, ts)
		}
		t.At = at
	}

	t.Cron = j.Cron
	return t, nil
}

// Validate checks the whole config: agent durations, storage shape, and
// every job block (including engine-level trigger validation). Used by the
// manager's validate-before-commit hook.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := ParseDurationField("agent.tick_interval", cfg.Agent.TickInterval); err != nil {
		return err
	}
	if _, err := ParseDurationField("agent.drain_timeout", cfg.Agent.DrainTimeout); err != nil {
		return err
	}
	if s := cfg.Storage; s != nil {
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			return err
		}
	}
	for name, job := range cfg.Jobs {
		spec, err := job.Spec(name)
		if err != nil {
			return err
		}
		if err := sched.ValidateSpec(&spec); err != nil {
			return err
		}
	}
	return nil
}
