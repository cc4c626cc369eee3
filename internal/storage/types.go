package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord records one finished job execution.
// Keep it compact and schema-stable.
type RunRecord struct {
	At         time.Time `json:"at"` // recognition instant
	Job        string    `json:"job"`
	Function   string    `json:"function"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	TookMS     int64     `json:"took_ms"`
	ReturnJSON string    `json:"return,omitempty"`
}
