package functions

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"tickd/internal/sched"
	"tickd/internal/storage"
	"tickd/pkg/netprobe"
	logx "tickd/pkg/logx"
)

// Deps are the collaborators builtins reach into.
type Deps struct {
	Log   logx.Logger
	Store storage.Store
}

// RegisterBuiltins installs the stock functions. Store-backed builtins are
// only registered when storage is enabled.
func RegisterBuiltins(reg *Registry, deps Deps) {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	_ = reg.Register("test.ping", ping)
	_ = reg.Register("sys.info", sysInfo)
	_ = reg.Register("net.probe", netProbe)
	if deps.Store != nil {
		_ = reg.Register("runs.prune", runsPrune(deps))
	}
}

func ping(context.Context, []any, map[string]any) (any, error) {
	return true, nil
}

var startedAt = time.Now()

func sysInfo(context.Context, []any, map[string]any) (any, error) {
	hostname, _ := os.Hostname()
	return map[string]any{
		"hostname":   hostname,
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"num_cpu":    runtime.NumCPU(),
		"go_version": runtime.Version(),
		"pid":        os.Getpid(),
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(startedAt).Round(time.Second).String(),
	}, nil
}

// runsPrune deletes run-history records older than the "older_than" kwarg
// (Go duration string, default 168h).
func runsPrune(deps Deps) sched.Func {
	return func(ctx context.Context, _ []any, kwargs map[string]any) (any, error) {
		olderThan := 168 * time.Hour
		if v, ok := kwargs["older_than"]; ok {
			d, err := durationKwarg(v)
			if err != nil {
				return nil, fmt.Errorf("older_than: %w", err)
			}
			olderThan = d
		}
		cutoff := time.Now().Add(-olderThan)
		removed, err := deps.Store.PruneBefore(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		deps.Log.Info("pruned run history",
			logx.Int("removed", removed), logx.Time("cutoff", cutoff))
		return map[string]any{"removed": removed}, nil
	}
}

// netProbe measures network latency, plus throughput when the "throughput"
// kwarg is truthy. The prober is built per call so kwargs fully describe
// the run.
func netProbe(ctx context.Context, _ []any, kwargs map[string]any) (any, error) {
	cfg := netprobe.Config{}
	if v, ok := kwargs["throughput"]; ok {
		b, err := boolKwarg(v)
		if err != nil {
			return nil, fmt.Errorf("throughput: %w", err)
		}
		cfg.Throughput = b
	}
	if v, ok := kwargs["servers"]; ok {
		n, err := intKwarg(v)
		if err != nil {
			return nil, fmt.Errorf("servers: %w", err)
		}
		cfg.ServerCount = n
	}
	return netprobe.New(cfg).Probe(ctx)
}

// Kwargs arrive through YAML-to-JSON config decoding, so numbers may be
// float64 and everything may be a string.

func durationKwarg(v any) (time.Duration, error) {
	switch t := v.(type) {
	case string:
		return time.ParseDuration(t)
	case int:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("cannot interpret %T as duration", v)
}

func boolKwarg(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return t == "true" || t == "yes" || t == "1", nil
	}
	return false, fmt.Errorf("cannot interpret %T as bool", v)
}

func intKwarg(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	}
	return 0, fmt.Errorf("cannot interpret %T as int", v)
}
