package sched

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Unit is the time unit of a fixed-interval trigger.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"
)

func (u Unit) duration() time.Duration {
	switch u {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	}
	return 0
}

// IntervalTrigger fires whenever the elapsed time since the job's last
// recorded run (or since the Unix epoch, if it never ran) reaches
// Count * Unit. While SkipDuring contains the evaluation instant the job
// is suppressed; elapsed time keeps accumulating, so the job fires on the
// first tick outside the window.
type IntervalTrigger struct {
	Unit       Unit
	Count      int
	SkipDuring *Window
}

func (t IntervalTrigger) period() time.Duration {
	return time.Duration(t.Count) * t.Unit.duration()
}

// Trigger is a tagged union; exactly one member may be populated.
//
// At matches with second granularity: the job is due only on an Eval call
// whose now equals one of the listed instants. Cron is a standard
// five-field expression, parsed once at add/update time.
type Trigger struct {
	Interval *IntervalTrigger
	At       []time.Time
	Cron     string

	cronSched cron.Schedule
}

// JobSpec describes a job. Name is the unique registry key. Function is
// resolved against the host's function registry at each dispatch.
// MaxConcurrent caps in-flight executions; zero means 1.
type JobSpec struct {
	Name          string
	Trigger       Trigger
	Function      string
	Args          []any
	Kwargs        map[string]any
	Enabled       bool
	MaxConcurrent int
	Returners     []string
}

// JobStatus is a read-only snapshot of a job's runtime state.
type JobStatus struct {
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	LastRun   time.Time `json:"last_run"` // zero if the job never ran
	RunCount  int       `json:"run_count"`
	Running   int       `json:"running"`
	LastError string    `json:"last_error,omitempty"`
	NextCron  time.Time `json:"next_cron,omitempty"`
}

// Result is handed to every returner named by the job after a run finishes.
//
// RecognizedAt is the instant the occurrence was recognized as due, not the
// instant execution finished; interval elapsed-time math keys off it.
type Result struct {
	Job          string         `json:"job"`
	Function     string         `json:"function"`
	Args         []any          `json:"args,omitempty"`
	Kwargs       map[string]any `json:"kwargs,omitempty"`
	RecognizedAt time.Time      `json:"recognized_at"`
	Started      time.Time      `json:"started"`
	Finished     time.Time      `json:"finished"`
	Return       any            `json:"return,omitempty"`
	Error        string         `json:"error,omitempty"`
	Success      bool           `json:"success"`
}

// Func is a callable a job may invoke, registered by the host.
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// FunctionRegistry resolves function names at dispatch time.
type FunctionRegistry interface {
	Resolve(name string) (Func, bool)
}

// Returner receives run results, fire-and-forget.
type Returner func(ctx context.Context, res Result)

// ReturnerRegistry resolves returner names at completion time.
type ReturnerRegistry interface {
	Resolve(name string) (Returner, bool)
}

// runtimeState is a job's mutable bookkeeping. It is created with the spec,
// preserved across updates, and destroyed with the spec. Only the dispatch
// completion path mutates lastRun/runCount/lastErr.
type runtimeState struct {
	lastRun  time.Time
	runCount int
	running  int
	lastErr  string

	// cronNext is the next fire instant for cron triggers, primed lazily
	// from the first evaluation.
	cronNext time.Time
}

// jobEntry pairs a spec with its runtime state. mu serializes state
// reads/writes for this job across ticks and completions.
type jobEntry struct {
	mu    sync.Mutex
	spec  JobSpec
	state runtimeState
}

func (e *jobEntry) statusLocked() JobStatus {
	return JobStatus{
		Name:      e.spec.Name,
		Enabled:   e.spec.Enabled,
		LastRun:   e.state.lastRun,
		RunCount:  e.state.runCount,
		Running:   e.state.running,
		LastError: e.state.lastErr,
		NextCron:  e.state.cronNext,
	}
}
