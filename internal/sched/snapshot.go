package sched

// Snapshot is a point-in-time diagnostics view of the whole scheduler.
type Snapshot struct {
	Jobs             []JobStatus `json:"jobs"`
	PendingOverrides int         `json:"pending_overrides"`
}

func (s *Scheduler) Snapshot() Snapshot {
	entries := s.reg.snapshot()
	jobs := make([]JobStatus, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		jobs = append(jobs, e.statusLocked())
		e.mu.Unlock()
	}
	return Snapshot{Jobs: jobs, PendingOverrides: s.overrides.size()}
}
