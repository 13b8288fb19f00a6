// Package recorder persists per-step metrics rows for offline analysis.
// The engine itself keeps history in memory; a Recorder is the external
// collaborator that makes it durable.
package recorder

import "github.com/endowment-sim/endowment-sim/sim"

// Recorder persists historical metrics rows.
type Recorder interface {
	RecordStep(row sim.MetricsRow) error
	Close() error
}

// Noop is used when no database is configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (n *Noop) RecordStep(_ sim.MetricsRow) error { return nil }
func (n *Noop) Close() error                      { return nil }
