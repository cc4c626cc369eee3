package config

import (
	"reflect"
	"sort"
	"strings"

	logx "tickd/pkg/logx"
)

// JobDiff is the per-job delta between two configs. The app applies it
// through the scheduler API: Added -> AddJob, Updated -> UpdateJob,
// Removed -> DeleteJob.
type JobDiff struct {
	Added   []string
	Updated []string
	Removed []string
}

func (d JobDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// DiffJobs compares the job blocks of two configs by canonical hash.
func DiffJobs(oldCfg, newCfg *Config) JobDiff {
	oldJobs := map[string]JobConfig{}
	newJobs := map[string]JobConfig{}
	if oldCfg != nil {
		oldJobs = oldCfg.Jobs
	}
	if newCfg != nil {
		newJobs = newCfg.Jobs
	}

	var d JobDiff
	for name, job := range newJobs {
		old, ok := oldJobs[name]
		if !ok {
			d.Added = append(d.Added, name)
			continue
		}
		if hashJob(old) != hashJob(job) {
			d.Updated = append(d.Updated, name)
		}
	}
	for name := range oldJobs {
		if _, ok := newJobs[name]; !ok {
			d.Removed = append(d.Removed, name)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Updated)
	sort.Strings(d.Removed)
	return d
}

// SummarizeConfigChange returns a compact list of changed sections and
// safe structured attrs for logging.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Agent != newCfg.Agent {
		changed = append(changed, "agent")
		attrs = append(attrs,
			logx.String("agent.tick_interval", strings.TrimSpace(newCfg.Agent.TickInterval)),
			logx.String("agent.drain_timeout", strings.TrimSpace(newCfg.Agent.DrainTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage: nil means disabled.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if s := oldCfg.Storage; s != nil {
		oDriver = strings.TrimSpace(s.Driver)
		oBusy = strings.TrimSpace(s.BusyTimeout)
		oPathSet = strings.TrimSpace(s.Path) != ""
	}
	if s := newCfg.Storage; s != nil {
		nDriver = strings.TrimSpace(s.Driver)
		nBusy = strings.TrimSpace(s.BusyTimeout)
		nPathSet = strings.TrimSpace(s.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
		)
	}

	if d := DiffJobs(oldCfg, newCfg); !d.Empty() {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.Int("jobs.added", len(d.Added)),
			logx.Int("jobs.updated", len(d.Updated)),
			logx.Int("jobs.removed", len(d.Removed)),
			logx.Int("jobs.total", len(newCfg.Jobs)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
