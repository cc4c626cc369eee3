package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tickd/internal/eventbus"
	logx "tickd/pkg/logx"
)

// dispatcher runs job bodies off the eval path. Admission (the per-job
// concurrency cap) and the running-counter increment happen synchronously
// under the job's lock; everything after that is a goroutine per run.
type dispatcher struct {
	log       logx.Logger
	bus       eventbus.Bus
	reg       *registry
	functions FunctionRegistry
	returners ReturnerRegistry

	wg sync.WaitGroup

	// dropWarn throttles "occurrence dropped" warnings; a wedged job would
	// otherwise log once per tick.
	dropWarn *rate.Limiter
}

func newDispatcher(reg *registry, fns FunctionRegistry, rets ReturnerRegistry, log logx.Logger, bus eventbus.Bus) *dispatcher {
	return &dispatcher{
		log:       log,
		bus:       bus,
		reg:       reg,
		functions: fns,
		returners: rets,
		dropWarn:  rate.NewLimiter(rate.Every(10*time.Second), 1),
	}
}

// runEvent is the Data payload of job.run.* bus events.
type runEvent struct {
	Job          string    `json:"job"`
	Function     string    `json:"function"`
	RecognizedAt time.Time `json:"recognized_at"`
	Error        string    `json:"error,omitempty"`
}

// dispatch admits, bookkeeps, and launches one due occurrence recognized
// at now. A job already at its concurrency cap silently loses the
// occurrence; that is the backpressure mechanism, not an error.
func (d *dispatcher) dispatch(e *jobEntry, now time.Time) {
	e.mu.Lock()
	spec := e.spec
	if e.state.running >= spec.MaxConcurrent {
		e.mu.Unlock()
		d.noteDrop(spec, now)
		return
	}
	e.state.running++
	e.mu.Unlock()

	// Resolved once per dispatch, never cached across dispatches.
	fn, ok := d.functions.Resolve(spec.Function)
	if !ok {
		e.mu.Lock()
		e.state.running--
		e.state.lastErr = "unknown function: " + spec.Function
		e.mu.Unlock()
		d.log.Warn("scheduled job references unknown function",
			logx.String("job", spec.Name), logx.String("function", spec.Function))
		return
	}

	d.log.Info("running scheduled job", logx.String("job", spec.Name), logx.Time("due", now))
	d.bus.Publish(eventbus.Event{Type: "job.run.start", Time: now,
		Data: runEvent{Job: spec.Name, Function: spec.Function, RecognizedAt: now}})

	d.wg.Add(1)
	go d.run(e, spec, fn, now)
}

func (d *dispatcher) run(e *jobEntry, spec JobSpec, fn Func, recognized time.Time) {
	defer d.wg.Done()

	started := time.Now()
	ret, err := callFunc(fn, spec.Args, spec.Kwargs)

	res := Result{
		Job:          spec.Name,
		Function:     spec.Function,
		Args:         spec.Args,
		Kwargs:       spec.Kwargs,
		RecognizedAt: recognized,
		Started:      started,
		Finished:     time.Now(),
		Return:       ret,
		Success:      err == nil,
	}
	if err != nil {
		res.Error = err.Error()
		d.log.Warn("scheduled job failed",
			logx.String("job", spec.Name), logx.String("function", spec.Function), logx.Err(err))
	}

	if !d.reg.finishRun(e, spec.Name, recognized, res.Error) {
		// Job was deleted while the run was in flight; drop the result.
		d.log.Debug("dropping result of deleted job", logx.String("job", spec.Name))
		return
	}

	d.bus.Publish(eventbus.Event{Type: "job.run.finish", Time: res.Finished,
		Data: runEvent{Job: spec.Name, Function: spec.Function, RecognizedAt: recognized, Error: res.Error}})

	d.forward(spec, res)
}

// forward fans the result out to the job's returners. Returner failures
// are logged and never propagate.
func (d *dispatcher) forward(spec JobSpec, res Result) {
	ctx := context.Background()
	for _, name := range spec.Returners {
		ret, ok := d.returners.Resolve(name)
		if !ok {
			d.log.Info("job uses unknown returner; ignoring",
				logx.String("job", spec.Name), logx.String("returner", name))
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.Warn("returner panicked",
						logx.String("job", spec.Name), logx.String("returner", name), logx.Any("panic", r))
				}
			}()
			ret(ctx, res)
		}()
	}
}

// callFunc invokes the job body with panic capture, so one misbehaving
// function cannot take down the agent.
func callFunc(fn Func, args []any, kwargs map[string]any) (ret any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(context.Background(), args, kwargs)
}

func (d *dispatcher) noteDrop(spec JobSpec, now time.Time) {
	d.bus.Publish(eventbus.Event{Type: "job.run.drop", Time: now,
		Data: runEvent{Job: spec.Name, Function: spec.Function, RecognizedAt: now, Error: "max_concurrent"}})
	if d.dropWarn.Allow() {
		d.log.Warn("due occurrence dropped: job at concurrency cap",
			logx.String("job", spec.Name), logx.Int("max_concurrent", spec.MaxConcurrent))
	}
}

// drain waits for in-flight runs to finish or ctx to expire.
func (d *dispatcher) drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
