package sched

import (
	"errors"
	"testing"
	"time"
)

func intervalSpec(name string) JobSpec {
	return JobSpec{
		Name:     name,
		Trigger:  Trigger{Interval: &IntervalTrigger{Unit: Hours, Count: 1}},
		Function: "test.ping",
		Enabled:  true,
	}
}

func TestRegistryAdd(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := r.add(intervalSpec("job1")); !errors.Is(err, ErrDuplicateJob) {
		t.Fatalf("duplicate add = %v, want ErrDuplicateJob", err)
	}
	st, ok := r.status("job1")
	if !ok {
		t.Fatal("status: job missing")
	}
	if !st.LastRun.IsZero() || st.RunCount != 0 || st.Running != 0 {
		t.Fatalf("fresh job has non-zero state: %+v", st)
	}
}

func TestRegistryValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		spec    JobSpec
		wantErr error
	}{
		{"empty name", JobSpec{Name: "  "}, ErrNoName},
		{"no trigger", JobSpec{Name: "j"}, ErrNoTrigger},
		{"bad max concurrent", JobSpec{
			Name:          "j",
			Trigger:       Trigger{Interval: &IntervalTrigger{Unit: Seconds, Count: 1}},
			MaxConcurrent: -1,
		}, ErrBadMaxConcurrent},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newRegistry()
			if err := r.add(tt.spec); !errors.Is(err, tt.wantErr) {
				t.Fatalf("add = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryDefaultMaxConcurrent(t *testing.T) {
	t.Parallel()
	spec := intervalSpec("j")
	if err := validate(&spec); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if spec.MaxConcurrent != 1 {
		t.Fatalf("MaxConcurrent = %d, want default 1", spec.MaxConcurrent)
	}
}

func TestRegistryUpdatePreservesState(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	e := r.snapshot()[0]
	ran := time.Unix(1512000000, 0)
	e.state.running = 1
	if !r.finishRun(e, "job1", ran, "") {
		t.Fatal("finishRun rejected live entry")
	}

	next := intervalSpec("job1")
	next.Trigger = Trigger{Interval: &IntervalTrigger{Unit: Minutes, Count: 30}}
	if err := r.update("job1", next); err != nil {
		t.Fatalf("update: %v", err)
	}

	st, _ := r.status("job1")
	if !st.LastRun.Equal(ran) || st.RunCount != 1 {
		t.Fatalf("state lost across update: %+v", st)
	}
}

func TestRegistryUpdateUnknownInserts(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if err := r.update("fresh", intervalSpec("fresh")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := r.status("fresh"); !ok {
		t.Fatal("upsert did not insert")
	}
}

func TestRegistryDelete(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if r.delete("nope") {
		t.Fatal("delete of unknown job reported true")
	}
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !r.delete("job1") {
		t.Fatal("delete reported false")
	}
	if _, ok := r.status("job1"); ok {
		t.Fatal("job survived delete")
	}
}

func TestRegistrySetEnabled(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if r.setEnabled("nope", false) {
		t.Fatal("setEnabled on unknown job reported true")
	}
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	r.setEnabled("job1", false)
	if st, _ := r.status("job1"); st.Enabled {
		t.Fatal("job still enabled")
	}
	r.setEnabled("job1", true)
	if st, _ := r.status("job1"); !st.Enabled {
		t.Fatal("job still disabled")
	}
}

func TestRegistrySnapshotOrder(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.add(intervalSpec(name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	var got []string
	for _, e := range r.snapshot() {
		got = append(got, e.spec.Name)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot order = %v, want %v", got, want)
		}
	}
}

func TestFinishRunDeletedEntry(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	e := r.snapshot()[0]
	r.delete("job1")

	if r.finishRun(e, "job1", time.Unix(1512000000, 0), "") {
		t.Fatal("finishRun accepted a deleted entry")
	}

	// Re-adding the name creates a distinct entry; the stale completion
	// must not touch it.
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if r.finishRun(e, "job1", time.Unix(1512000000, 0), "") {
		t.Fatal("finishRun crossed entry identity")
	}
	st, _ := r.status("job1")
	if st.RunCount != 0 || !st.LastRun.IsZero() {
		t.Fatalf("stale completion leaked into new entry: %+v", st)
	}
}

func TestFinishRunMonotoneLastRun(t *testing.T) {
	t.Parallel()
	r := newRegistry()
	if err := r.add(intervalSpec("job1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	e := r.snapshot()[0]
	later := time.Unix(1512000300, 0)
	earlier := time.Unix(1512000000, 0)

	e.state.running = 2
	r.finishRun(e, "job1", later, "")
	r.finishRun(e, "job1", earlier, "boom")

	st, _ := r.status("job1")
	if !st.LastRun.Equal(later) {
		t.Fatalf("LastRun = %v, want %v (monotone)", st.LastRun, later)
	}
	if st.RunCount != 2 {
		t.Fatalf("RunCount = %d, want 2", st.RunCount)
	}
	if st.LastError != "boom" {
		t.Fatalf("LastError = %q, want last completion's error", st.LastError)
	}
}
