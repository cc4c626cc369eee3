package sched

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// validate checks the trigger and performs one-time parsing so the eval hot
// path never re-parses. Exactly one variant must be populated.
func (t *Trigger) validate() error {
	variants := 0
	if t.Interval != nil {
		variants++
	}
	if len(t.At) > 0 {
		variants++
	}
	if t.Cron != "" {
		variants++
	}
	if variants == 0 {
		return ErrNoTrigger
	}
	if variants > 1 {
		return ErrTriggerConflict
	}

	if iv := t.Interval; iv != nil {
		if iv.Unit.duration() == 0 {
			return fmt.Errorf("%w: %q", ErrBadUnit, iv.Unit)
		}
		if iv.Count < 1 {
			return ErrBadCount
		}
		if w := iv.SkipDuring; w != nil && w.Start == w.End {
			return ErrBadWindow
		}
	}

	if t.Cron != "" {
		sched, err := cron.ParseStandard(t.Cron)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadCron, err)
		}
		t.cronSched = sched
	} else {
		t.cronSched = nil
	}
	return nil
}

// dueLocked reports whether the job's trigger fires at now. Callers hold
// e.mu. The only mutation is cron priming: a cron trigger's first
// evaluation records the next fire instant and reports not-due.
func (e *jobEntry) dueLocked(now time.Time) bool {
	t := &e.spec.Trigger
	switch {
	case t.Interval != nil:
		iv := t.Interval
		if iv.SkipDuring != nil && iv.SkipDuring.Contains(now) {
			return false
		}
		last := e.state.lastRun
		if last.IsZero() {
			last = time.Unix(0, 0)
		}
		return now.Sub(last) >= iv.period()

	case len(t.At) > 0:
		nu := now.Unix()
		for _, at := range t.At {
			if at.Unix() == nu {
				return true
			}
		}
		return false

	case t.cronSched != nil:
		if e.state.cronNext.IsZero() {
			e.state.cronNext = t.cronSched.Next(now)
			return false
		}
		return !now.Before(e.state.cronNext)
	}
	return false
}
