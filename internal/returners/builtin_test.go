package returners

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tickd/internal/eventbus"
	"tickd/internal/sched"
	"tickd/internal/storage"
	logx "tickd/pkg/logx"
)

func sampleResult() sched.Result {
	at := time.Unix(1512000000, 0)
	return sched.Result{
		Job:          "job1",
		Function:     "test.ping",
		RecognizedAt: at,
		Started:      at,
		Finished:     at.Add(50 * time.Millisecond),
		Return:       true,
		Success:      true,
	}
}

func TestRegistryRegisterResolve(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	if err := reg.Register("", Log(logx.Nop())); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("nil returner accepted")
	}
	if err := reg.Register("log", Log(logx.Nop())); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := reg.Resolve("log"); !ok {
		t.Fatal("registered returner not resolvable")
	}
	if _, ok := reg.Resolve("nope"); ok {
		t.Fatal("unknown name resolved")
	}
}

func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	RegisterBuiltins(reg, logx.Nop(), eventbus.Nop(), nil)
	for _, name := range []string{"log", "event"} {
		if _, ok := reg.Resolve(name); !ok {
			t.Fatalf("builtin %s missing", name)
		}
	}
	if _, ok := reg.Resolve("history"); ok {
		t.Fatal("history registered without a store")
	}
}

func TestEventReturner(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	Event(bus)(context.Background(), sampleResult())

	select {
	case e := <-ch:
		if e.Type != "job.return" {
			t.Fatalf("event type = %q, want job.return", e.Type)
		}
		res, ok := e.Data.(sched.Result)
		if !ok || res.Job != "job1" {
			t.Fatalf("event data = %#v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestHistoryReturner(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "tickd.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	History(st, logx.Nop())(context.Background(), sampleResult())

	got, err := st.RecentRuns(context.Background(), "job1", 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	r := got[0]
	if !r.At.Equal(time.Unix(1512000000, 0)) || !r.Success || r.TookMS != 50 {
		t.Fatalf("record = %+v", r)
	}
	if r.ReturnJSON != "true" {
		t.Fatalf("ReturnJSON = %q, want true", r.ReturnJSON)
	}
}
