package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "tickd/pkg/logx"
)

// Store is the minimal persistence API used by returners and builtins.
type Store interface {
	AppendRun(ctx context.Context, r RunRecord) error
	// RecentRuns returns up to limit records for the job (all jobs when
	// job is empty), newest first.
	RecentRuns(ctx context.Context, job string, limit int) ([]RunRecord, error)
	// PruneBefore deletes records older than cutoff and reports how many
	// were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
