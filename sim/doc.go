// Package sim provides the core engine for the decentralized endowment
// participation simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - holder.go: the archetype-parameterized agent (yield, deployments, exit)
//   - proposal.go: the funding lifecycle state machine (open → funded → completed/failed)
//   - model.go: the orchestrator that advances the economy one week at a time
//
// # Architecture
//
// A Model owns the holder and proposal collections. Each Step() freezes an
// AggregateSnapshot (total RSC held, effective RSC, APY, weekly emission),
// runs every active holder against that snapshot in a shuffled order,
// recomputes aggregates, resolves matured proposals, spawns re-entrants and
// new proposals, and appends one MetricsRow to the in-memory history.
//
// Static reference data (emission constants, time-weight tiers, archetype
// definitions) lives in emission.go, multiplier.go and archetype.go and is
// usable without a running Model.
//
// All randomness flows through a seeded PartitionedRNG (rng.go): the same
// seed, configuration and step count reproduce bit-identical populations
// and outcome sequences.
package sim
