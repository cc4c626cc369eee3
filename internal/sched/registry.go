package sched

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// registry owns job specs and their runtime state. All mutation goes
// through the explicit operations below; the eval loop and the dispatch
// completion path never touch specs.
type registry struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

func newRegistry() *registry {
	return &registry{jobs: map[string]*jobEntry{}}
}

// validate normalizes and checks a spec. On success the trigger has been
// parsed (cron schedules are compiled here, never on the eval path).
func validate(spec *JobSpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return ErrNoName
	}
	if err := spec.Trigger.validate(); err != nil {
		return fmt.Errorf("job %q: %w", spec.Name, err)
	}
	if spec.MaxConcurrent == 0 {
		spec.MaxConcurrent = 1
	}
	if spec.MaxConcurrent < 1 {
		return fmt.Errorf("job %q: %w", spec.Name, ErrBadMaxConcurrent)
	}
	return nil
}

// ValidateSpec checks a spec without registering it. Hosts use it to
// reject bad config before touching the registry.
func ValidateSpec(spec *JobSpec) error {
	return validate(spec)
}

func (r *registry) add(spec JobSpec) error {
	if err := validate(&spec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[spec.Name]; exists {
		return fmt.Errorf("job %q: %w", spec.Name, ErrDuplicateJob)
	}
	r.jobs[spec.Name] = &jobEntry{spec: spec}
	return nil
}

// update replaces the spec in place, preserving runtime state so last-run
// bookkeeping survives a config change. Unknown names are inserted fresh.
func (r *registry) update(name string, spec JobSpec) error {
	spec.Name = name
	if err := validate(&spec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, exists := r.jobs[name]
	if !exists {
		r.jobs[name] = &jobEntry{spec: spec}
		return nil
	}
	e.mu.Lock()
	e.spec = spec
	// A trigger change invalidates primed cron bookkeeping.
	e.state.cronNext = time.Time{}
	e.mu.Unlock()
	return nil
}

// delete removes the job and its state. No-op for unknown names.
func (r *registry) delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[name]; !exists {
		return false
	}
	delete(r.jobs, name)
	return true
}

func (r *registry) setEnabled(name string, enabled bool) bool {
	r.mu.RLock()
	e := r.jobs[name]
	r.mu.RUnlock()
	if e == nil {
		return false
	}
	e.mu.Lock()
	e.spec.Enabled = enabled
	e.mu.Unlock()
	return true
}

func (r *registry) status(name string) (JobStatus, bool) {
	r.mu.RLock()
	e := r.jobs[name]
	r.mu.RUnlock()
	if e == nil {
		return JobStatus{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked(), true
}

// snapshot returns the current entries in name order. Iteration order is
// unspecified by contract; sorting just keeps logs and tests stable.
func (r *registry) snapshot() []*jobEntry {
	r.mu.RLock()
	out := make([]*jobEntry, 0, len(r.jobs))
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, r.jobs[name])
	}
	r.mu.RUnlock()
	return out
}

// finishRun applies completion bookkeeping for a run recognized at the
// given instant. It writes nothing when the job was deleted (or deleted
// and re-added) while the run was in flight; the result is dropped.
func (r *registry) finishRun(e *jobEntry, name string, recognized time.Time, errMsg string) bool {
	r.mu.RLock()
	cur := r.jobs[name]
	r.mu.RUnlock()
	if cur != e {
		return false
	}

	e.mu.Lock()
	if e.state.running > 0 {
		e.state.running--
	}
	// last_run records the recognition instant and is monotone even if
	// completions land out of order.
	if recognized.After(e.state.lastRun) {
		e.state.lastRun = recognized
	}
	e.state.runCount++
	e.state.lastErr = errMsg
	e.mu.Unlock()
	return true
}
