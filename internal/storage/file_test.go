package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "tickd/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "tickd.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func rec(job string, at time.Time, ok bool) RunRecord {
	return RunRecord{At: at, Job: job, Function: "test.ping", Success: ok}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if st != nil || err != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestFileAppendAndRecent(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1512000000, 0)

	for i := 0; i < 3; i++ {
		if err := st.AppendRun(ctx, rec("job1", base.Add(time.Duration(i)*time.Minute), true)); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}
	if err := st.AppendRun(ctx, rec("job2", base.Add(10*time.Minute), false)); err != nil {
		t.Fatalf("AppendRun: %v", err)
	}

	got, err := st.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	// Newest first.
	if got[0].Job != "job2" || !got[1].At.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("order wrong: %+v", got[:2])
	}

	got, err = st.RecentRuns(ctx, "job1", 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 || got[0].Job != "job1" || got[1].Job != "job1" {
		t.Fatalf("filtered = %+v, want 2 job1 records", got)
	}
}

func TestFilePruneBefore(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1512000000, 0)

	for i := 0; i < 5; i++ {
		if err := st.AppendRun(ctx, rec("job1", base.Add(time.Duration(i)*time.Hour), true)); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}

	n, err := st.PruneBefore(ctx, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if n != 3 {
		t.Fatalf("pruned %d, want 3", n)
	}

	got, err := st.RecentRuns(ctx, "", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d after prune, want 2", len(got))
	}
	for _, r := range got {
		if r.At.Before(base.Add(3 * time.Hour)) {
			t.Fatalf("record %v survived prune", r.At)
		}
	}

	// Appends keep working against the rewritten file.
	if err := st.AppendRun(ctx, rec("job1", base.Add(6*time.Hour), true)); err != nil {
		t.Fatalf("AppendRun after prune: %v", err)
	}
	got, _ = st.RecentRuns(ctx, "", 10)
	if len(got) != 3 || !got[0].At.Equal(base.Add(6*time.Hour)) {
		t.Fatalf("post-prune append missing: %+v", got)
	}

	// Nothing old left: prune is a no-op.
	if n, err := st.PruneBefore(ctx, base.Add(3*time.Hour)); err != nil || n != 0 {
		t.Fatalf("second prune = %d, %v; want 0, nil", n, err)
	}
}
