package sched

import (
	"sync"
	"time"
)

type overrideKind int

const (
	overrideSkip overrideKind = iota
	overridePostpone
)

func (k overrideKind) String() string {
	if k == overridePostpone {
		return "postpone"
	}
	return "skip"
}

// override is a one-shot exception attached to a single scheduled
// occurrence (the anchor). At most one exists per (job, anchor); a later
// set for the same key overwrites the earlier one.
type override struct {
	job     string
	anchor  time.Time
	kind    overrideKind
	newTime time.Time // postpone only
}

type ovKey struct {
	job string
	at  int64 // unix seconds; all matching is second-granularity
}

// overrideTable stores skip/postpone one-shots. Entries for job names not
// (yet) in the registry are accepted and simply sit unconsumed, which lets
// an override race ahead of its job definition.
type overrideTable struct {
	mu      sync.Mutex
	entries map[ovKey]override

	// runs holds armed replacement instants for postpones whose anchor
	// occurrence was already observed: (job, new_time) -> original anchor.
	runs map[ovKey]time.Time
}

func newOverrideTable() *overrideTable {
	return &overrideTable{
		entries: map[ovKey]override{},
		runs:    map[ovKey]time.Time{},
	}
}

func (t *overrideTable) setSkip(job string, anchor time.Time) {
	t.mu.Lock()
	t.entries[ovKey{job, anchor.Unix()}] = override{job: job, anchor: anchor, kind: overrideSkip}
	t.mu.Unlock()
}

func (t *overrideTable) setPostpone(job string, anchor, newTime time.Time) {
	t.mu.Lock()
	t.entries[ovKey{job, anchor.Unix()}] = override{job: job, anchor: anchor, kind: overridePostpone, newTime: newTime}
	t.mu.Unlock()
}

// consume destructively reads the override anchored at now, if any.
// Consuming a postpone arms its replacement run at newTime.
func (t *overrideTable) consume(job string, now time.Time) (override, bool) {
	key := ovKey{job, now.Unix()}
	t.mu.Lock()
	defer t.mu.Unlock()
	ov, ok := t.entries[key]
	if !ok {
		return override{}, false
	}
	delete(t.entries, key)
	if ov.kind == overridePostpone {
		t.runs[ovKey{job, ov.newTime.Unix()}] = ov.anchor
	}
	return ov, true
}

// consumeRun destructively reads a pending postpone replacement due at now.
// It matches armed runs first, then postpones whose anchor was never
// observed (the host skipped over the anchor instant entirely).
func (t *overrideTable) consumeRun(job string, now time.Time) (anchor time.Time, ok bool) {
	key := ovKey{job, now.Unix()}
	t.mu.Lock()
	defer t.mu.Unlock()
	if at, found := t.runs[key]; found {
		delete(t.runs, key)
		return at, true
	}
	for k, ov := range t.entries {
		if k.job == job && ov.kind == overridePostpone && ov.newTime.Unix() == now.Unix() {
			delete(t.entries, k)
			return ov.anchor, true
		}
	}
	return time.Time{}, false
}

// drop removes every override and armed run for a job. Called on delete so
// stale one-shots cannot attach to a later job with the same name.
func (t *overrideTable) drop(job string) {
	t.mu.Lock()
	for k := range t.entries {
		if k.job == job {
			delete(t.entries, k)
		}
	}
	for k := range t.runs {
		if k.job == job {
			delete(t.runs, k)
		}
	}
	t.mu.Unlock()
}

func (t *overrideTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries) + len(t.runs)
}
