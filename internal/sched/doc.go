// Package sched is tickd's scheduler engine.
//
// The engine is deliberately clock-free: the host supplies "now" to every
// Eval call (the agent ticks once per second), and all trigger math is a
// function of that instant plus per-job runtime state. Job bodies run off
// the eval path; the only admission control is the per-job concurrency cap.
package sched
