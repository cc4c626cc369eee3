// Package functions holds the callables scheduled jobs may invoke.
package functions

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"tickd/internal/sched"
)

// Registry maps function names to callables. Registration normally happens
// once at startup; Resolve is called on every dispatch.
type Registry struct {
	mu  sync.RWMutex
	fns map[string]sched.Func
}

func NewRegistry() *Registry {
	return &Registry{fns: map[string]sched.Func{}}
}

// Register adds or replaces a function. Last registration wins, so hosts
// can shadow a builtin.
func (r *Registry) Register(name string, fn sched.Func) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("function name required")
	}
	if fn == nil {
		return errors.New("nil function: " + name)
	}
	r.mu.Lock()
	r.fns[name] = fn
	r.mu.Unlock()
	return nil
}

func (r *Registry) Resolve(name string) (sched.Func, bool) {
	r.mu.RLock()
	fn, ok := r.fns[name]
	r.mu.RUnlock()
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.fns))
	for name := range r.fns {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
