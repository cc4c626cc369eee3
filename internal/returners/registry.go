// Package returners delivers finished run results to their destinations.
package returners

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"tickd/internal/sched"
)

// Registry maps returner names to handlers. Jobs reference returners by
// name; resolution happens at completion time.
type Registry struct {
	mu   sync.RWMutex
	rets map[string]sched.Returner
}

func NewRegistry() *Registry {
	return &Registry{rets: map[string]sched.Returner{}}
}

// Register adds or replaces a returner. Last registration wins.
func (r *Registry) Register(name string, ret sched.Returner) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("returner name required")
	}
	if ret == nil {
		return errors.New("nil returner: " + name)
	}
	r.mu.Lock()
	r.rets[name] = ret
	r.mu.Unlock()
	return nil
}

func (r *Registry) Resolve(name string) (sched.Returner, bool) {
	r.mu.RLock()
	ret, ok := r.rets[name]
	r.mu.RUnlock()
	return ret, ok
}

// Names returns the registered returner names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.rets))
	for name := range r.rets {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
