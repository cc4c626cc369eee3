package functions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tickd/internal/storage"
	logx "tickd/pkg/logx"
)

func TestRegistryRegisterResolve(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	if err := reg.Register("", ping); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("nil function accepted")
	}

	if err := reg.Register("test.ping", ping); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := reg.Resolve("test.ping"); !ok {
		t.Fatal("registered function not resolvable")
	}
	if _, ok := reg.Resolve("nope"); ok {
		t.Fatal("unknown name resolved")
	}

	// Last registration wins.
	override := func(context.Context, []any, map[string]any) (any, error) { return "shadowed", nil }
	if err := reg.Register("test.ping", override); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	fn, _ := reg.Resolve("test.ping")
	got, err := fn(context.Background(), nil, nil)
	if err != nil || got != "shadowed" {
		t.Fatalf("resolved = %v, %v; want shadowed", got, err)
	}
}

func TestRegisterBuiltins(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	RegisterBuiltins(reg, Deps{})

	for _, name := range []string{"test.ping", "sys.info", "net.probe"} {
		if _, ok := reg.Resolve(name); !ok {
			t.Fatalf("builtin %s missing", name)
		}
	}
	// Store-backed builtins stay out without storage.
	if _, ok := reg.Resolve("runs.prune"); ok {
		t.Fatal("runs.prune registered without a store")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	got, err := ping(context.Background(), nil, nil)
	if err != nil || got != true {
		t.Fatalf("ping = %v, %v; want true", got, err)
	}
}

func TestSysInfo(t *testing.T) {
	t.Parallel()
	got, err := sysInfo(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("sysInfo: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("sysInfo returned %T, want map", got)
	}
	for _, key := range []string{"hostname", "os", "arch", "num_cpu", "go_version", "pid"} {
		if _, ok := m[key]; !ok {
			t.Fatalf("sys.info missing %q: %v", key, m)
		}
	}
}

func TestRunsPrune(t *testing.T) {
	t.Parallel()
	st, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "tickd.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()
	for _, at := range []time.Time{old, fresh} {
		if err := st.AppendRun(ctx, storage.RunRecord{At: at, Job: "j", Function: "f", Success: true}); err != nil {
			t.Fatalf("AppendRun: %v", err)
		}
	}

	reg := NewRegistry()
	RegisterBuiltins(reg, Deps{Store: st})
	fn, ok := reg.Resolve("runs.prune")
	if !ok {
		t.Fatal("runs.prune not registered with a store")
	}

	got, err := fn(ctx, nil, map[string]any{"older_than": "24h"})
	if err != nil {
		t.Fatalf("runs.prune: %v", err)
	}
	m := got.(map[string]any)
	if m["removed"] != 1 {
		t.Fatalf("removed = %v, want 1", m["removed"])
	}

	if _, err := fn(ctx, nil, map[string]any{"older_than": "not a duration"}); err == nil {
		t.Fatal("bad older_than accepted")
	}
}

func TestKwargCoercion(t *testing.T) {
	t.Parallel()
	if d, err := durationKwarg("90m"); err != nil || d != 90*time.Minute {
		t.Fatalf("durationKwarg(90m) = %v, %v", d, err)
	}
	if d, err := durationKwarg(float64(30)); err != nil || d != 30*time.Second {
		t.Fatalf("durationKwarg(30) = %v, %v", d, err)
	}
	if _, err := durationKwarg([]any{}); err == nil {
		t.Fatal("durationKwarg accepted a slice")
	}
	if b, err := boolKwarg("yes"); err != nil || !b {
		t.Fatalf("boolKwarg(yes) = %v, %v", b, err)
	}
	if n, err := intKwarg(float64(5)); err != nil || n != 5 {
		t.Fatalf("intKwarg(5.0) = %v, %v", n, err)
	}
}
