package storage

// Package storage persists job run history.
//
// It currently supports:
//   - Run record appends (one per finished execution)
//   - Recent-run queries for diagnostics
//   - Pruning of old records
