package returners

import (
	"context"
	"encoding/json"

	"tickd/internal/eventbus"
	"tickd/internal/sched"
	"tickd/internal/storage"
	logx "tickd/pkg/logx"
)

// RegisterBuiltins installs the stock returners. The history returner is
// only registered when storage is enabled.
func RegisterBuiltins(reg *Registry, log logx.Logger, bus eventbus.Bus, st storage.Store) {
	if log.IsZero() {
		log = logx.Nop()
	}
	_ = reg.Register("log", Log(log))
	_ = reg.Register("event", Event(bus))
	if st != nil {
		_ = reg.Register("history", History(st, log))
	}
}

// Log writes one structured line per result.
func Log(log logx.Logger) sched.Returner {
	return func(_ context.Context, res sched.Result) {
		log.Info("job result",
			logx.String("job", res.Job),
			logx.String("function", res.Function),
			logx.Bool("success", res.Success),
			logx.String("error", res.Error),
			logx.Duration("took", res.Finished.Sub(res.Started)),
			logx.Any("return", res.Return),
		)
	}
}

// Event publishes the full result on the bus under "job.return".
func Event(bus eventbus.Bus) sched.Returner {
	return func(_ context.Context, res sched.Result) {
		bus.Publish(eventbus.Event{Type: "job.return", Time: res.Finished, Data: res})
	}
}

// History appends the result to the run-history store.
func History(st storage.Store, log logx.Logger) sched.Returner {
	return func(ctx context.Context, res sched.Result) {
		rec := storage.RunRecord{
			At:       res.RecognizedAt,
			Job:      res.Job,
			Function: res.Function,
			Success:  res.Success,
			Error:    res.Error,
			TookMS:   res.Finished.Sub(res.Started).Milliseconds(),
		}
		if res.Return != nil {
			if b, err := json.Marshal(res.Return); err == nil {
				rec.ReturnJSON = string(b)
			}
		}
		if err := st.AppendRun(ctx, rec); err != nil {
			log.Warn("run history append failed",
				logx.String("job", res.Job), logx.Err(err))
		}
	}
}
