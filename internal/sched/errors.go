package sched

import "errors"

// Validation errors surfaced synchronously by AddJob/UpdateJob. The registry
// is left unchanged when any of these is returned.
var (
	ErrNoName           = errors.New("job name is required")
	ErrDuplicateJob     = errors.New("job name already registered")
	ErrNoTrigger        = errors.New("job has no trigger")
	ErrTriggerConflict  = errors.New("job mixes trigger kinds")
	ErrBadUnit          = errors.New("unknown interval unit")
	ErrBadCount         = errors.New("interval count must be >= 1")
	ErrBadWindow        = errors.New("window start and end must differ")
	ErrBadMaxConcurrent = errors.New("max_concurrent must be >= 1")
	ErrBadCron          = errors.New("invalid cron expression")
)
